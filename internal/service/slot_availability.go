package service

import (
	"fmt"
	"strings"

	"github.com/campus-ops/timetable-api/internal/models"
)

// SlotGrid is the ordered daily sequence of candidate lesson blocks. The grid
// comes from configuration, not code.
type SlotGrid []models.TimeInterval

// ParseSlotGrid builds a grid from "HH:MM-HH:MM" block definitions.
func ParseSlotGrid(raw []string) (SlotGrid, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("slot grid requires at least one block")
	}
	grid := make(SlotGrid, 0, len(raw))
	for _, block := range raw {
		parts := strings.SplitN(block, "-", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid slot block %q: expected HH:MM-HH:MM", block)
		}
		interval, err := models.ParseTimeInterval(parts[0], parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid slot block %q: %w", block, err)
		}
		grid = append(grid, interval)
	}
	for i := 1; i < len(grid); i++ {
		if grid[i].Start < grid[i-1].End {
			return nil, fmt.Errorf("slot blocks %s and %s overlap or are out of order", grid[i-1], grid[i])
		}
	}
	return grid, nil
}

// Availability marks every grid block free or occupied against the provided
// entries. It is a pure function: callers pre-filter entries to one
// classroom, day and (optionally) date. Zero entries means every block is
// available. Output preserves grid order.
func (g SlotGrid) Availability(existing []models.ScheduleEntry) []models.SlotStatus {
	statuses := make([]models.SlotStatus, 0, len(g))
	for _, block := range g {
		available := true
		for _, entry := range existing {
			if block.Overlaps(entry.Interval()) {
				available = false
				break
			}
		}
		statuses = append(statuses, models.SlotStatus{Interval: block, Available: available})
	}
	return statuses
}
