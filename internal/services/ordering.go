package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/esalinasbarros/zmartboard/internal/models"
	apperrors "github.com/esalinasbarros/zmartboard/pkg/errors"
)

// errInvalidPosition rejects negative target positions before any rows move.
var errInvalidPosition = apperrors.NewBadRequest("position must be zero or greater")

// orderedSet manipulates the dense zero-based position column shared by
// columns-within-a-board and tasks-within-a-column. Every mutation here
// runs against the transaction handle supplied by the caller; a reorder is
// only correct when all of its shifts and the item write commit together.
type orderedSet struct {
	model     interface{}
	parentKey string
}

var (
	columnOrder = orderedSet{model: &models.Column{}, parentKey: "board_id"}
	taskOrder   = orderedSet{model: &models.Task{}, parentKey: "column_id"}
)

func (o orderedSet) scope(tx *gorm.DB, parentID string) *gorm.DB {
	return tx.Model(o.model).Where(o.parentKey+" = ?", parentID)
}

// nextPosition returns the append position for a parent: max(position)+1,
// or 0 when the parent has no children yet.
func (o orderedSet) nextPosition(tx *gorm.DB, parentID string) (int, error) {
	var next int
	err := o.scope(tx, parentID).
		Select("COALESCE(MAX(position) + 1, 0)").
		Scan(&next).Error
	if err != nil {
		return 0, fmt.Errorf("ordering: next position: %w", err)
	}
	return next, nil
}

// openSlot shifts every sibling at or after position up by one, making room
// for an insert.
func (o orderedSet) openSlot(tx *gorm.DB, parentID string, position int) error {
	err := o.scope(tx, parentID).
		Where("position >= ?", position).
		UpdateColumn("position", gorm.Expr("position + 1")).Error
	if err != nil {
		return fmt.Errorf("ordering: open slot at %d: %w", position, err)
	}
	return nil
}

// closeGap shifts every sibling after position down by one, re-densifying
// the sequence after a removal.
func (o orderedSet) closeGap(tx *gorm.DB, parentID string, position int) error {
	err := o.scope(tx, parentID).
		Where("position > ?", position).
		UpdateColumn("position", gorm.Expr("position - 1")).Error
	if err != nil {
		return fmt.Errorf("ordering: close gap at %d: %w", position, err)
	}
	return nil
}

// shiftForMove adjusts the siblings between the old and new position of an
// item moving within the same parent. Moving down shifts (old, new] back by
// one; moving up shifts [new, old) forward by one. The moved row itself is
// excluded and updated separately by the caller. Equal positions are a no-op.
func (o orderedSet) shiftForMove(tx *gorm.DB, parentID, excludeID string, oldPos, newPos int) error {
	var err error
	switch {
	case newPos > oldPos:
		err = o.scope(tx, parentID).
			Where("id <> ? AND position > ? AND position <= ?", excludeID, oldPos, newPos).
			UpdateColumn("position", gorm.Expr("position - 1")).Error
	case newPos < oldPos:
		err = o.scope(tx, parentID).
			Where("id <> ? AND position >= ? AND position < ?", excludeID, newPos, oldPos).
			UpdateColumn("position", gorm.Expr("position + 1")).Error
	}
	if err != nil {
		return fmt.Errorf("ordering: shift %d -> %d: %w", oldPos, newPos, err)
	}
	return nil
}

// resolveInsertPosition picks the write position for a new item: the
// requested position when given (shifting siblings to open the slot),
// otherwise the append position. Requests at or beyond the current count
// clamp to append so the sequence stays dense.
func (o orderedSet) resolveInsertPosition(tx *gorm.DB, parentID string, requested *int) (int, error) {
	next, err := o.nextPosition(tx, parentID)
	if err != nil {
		return 0, err
	}
	if requested == nil {
		return next, nil
	}
	if *requested < 0 {
		return 0, errInvalidPosition
	}
	if *requested >= next {
		return next, nil
	}
	if err := o.openSlot(tx, parentID, *requested); err != nil {
		return 0, err
	}
	return *requested, nil
}
