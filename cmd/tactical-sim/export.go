package main

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/OCAP2/tactical/internal/config"
	"github.com/OCAP2/tactical/internal/model"
	"github.com/OCAP2/tactical/internal/model/convert"
	"github.com/OCAP2/tactical/internal/storage"
	"github.com/OCAP2/tactical/internal/storage/memory"
	"github.com/OCAP2/tactical/pkg/core"
)

// exportBattle replays a stored battle into the memory backend and returns
// the path of the replay it wrote.
func exportBattle(db *gorm.DB, battleID uint, cfg config.MemoryConfig) (string, error) {
	txStart := time.Now()

	var battle model.Battle
	if err := db.Model(&model.Battle{}).Where("id = ?", battleID).First(&battle).Error; err != nil {
		return "", fmt.Errorf("error getting battle %d: %w", battleID, err)
	}

	var rows []model.Event
	err := db.Model(&model.Event{}).
		Where("battle_id = ?", battleID).
		Order("tick ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return "", fmt.Errorf("error getting events: %w", err)
	}

	backend := memory.New(cfg, nil)
	coreBattle := convert.BattleToCore(battle)
	if err := backend.StartBattle(&coreBattle); err != nil {
		return "", err
	}

	events := make([]core.Event, 0, len(rows))
	for _, row := range rows {
		ev, err := convert.EventToCore(row)
		if err != nil {
			return "", err
		}
		events = append(events, ev)
	}
	if err := storage.RecordAll(backend, events); err != nil {
		return "", fmt.Errorf("error replaying events: %w", err)
	}

	summary := convert.SummaryToCore(battle)
	if err := backend.EndBattle(&summary); err != nil {
		return "", fmt.Errorf("error writing replay: %w", err)
	}

	fmt.Printf("Exported battle %d (%d events) in %s\n", battleID, len(events), time.Since(txStart))
	return backend.GetExportedFilePath(), nil
}
