package application

import (
	"fmt"
	"math"
	"sort"

	"github.com/ark-network/notewallet/internal/core/domain"
)

const maxFeeIterations = 10

// FeeEstimator returns the fee expected for a tx spending numInputs notes.
type FeeEstimator func(numInputs int) uint64

// LinearFeeEstimator charges a base fee plus a fixed amount per input note.
func LinearFeeEstimator(base, perNote uint64) FeeEstimator {
	return func(numInputs int) uint64 {
		return base + perNote*uint64(numInputs)
	}
}

// SelectNotes picks the largest notes first until their sum covers target.
// Notes with equal amounts keep their relative order.
func SelectNotes(
	available []domain.Note, target uint64,
) ([]domain.Note, uint64, error) {
	if target == 0 {
		return nil, 0, fmt.Errorf("target amount must be greater than zero")
	}

	candidates := make([]domain.Note, 0, len(available))
	for _, n := range available {
		if n.IsAvailable() {
			candidates = append(candidates, n)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Amount > candidates[j].Amount
	})

	selected := make([]domain.Note, 0)
	total := uint64(0)
	for _, n := range candidates {
		if total >= target {
			break
		}
		selected = append(selected, n)
		total += n.Amount
	}

	if total < target {
		return nil, 0, domain.NewInsufficientFundsError(total, target)
	}
	return selected, total, nil
}

// SweepNotes selects every available note.
func SweepNotes(available []domain.Note) ([]domain.Note, uint64, error) {
	selected := make([]domain.Note, 0, len(available))
	total := uint64(0)
	for _, n := range available {
		if n.IsAvailable() {
			selected = append(selected, n)
			total += n.Amount
		}
	}
	if len(selected) <= 0 {
		return nil, 0, domain.NewInsufficientFundsError(0, 1)
	}
	return selected, total, nil
}

type selection struct {
	notes  []domain.Note
	total  uint64
	amount uint64
	fee    uint64
	change uint64
}

func (s selection) ids() []string {
	ids := make([]string, 0, len(s.notes))
	for _, n := range s.notes {
		ids = append(ids, n.Id)
	}
	return ids
}

// selectWithFee runs the selection for amount plus fee. When fee is nil the
// estimate is refined with the number of selected inputs until it settles.
func selectWithFee(
	available []domain.Note, amount uint64, fee *uint64, sweep bool,
	estimate FeeEstimator,
) (*selection, error) {
	if sweep {
		notes, total, err := SweepNotes(available)
		if err != nil {
			return nil, err
		}
		f := estimate(len(notes))
		if fee != nil {
			f = *fee
		}
		if total <= f {
			required := uint64(math.MaxUint64)
			if f < required {
				required = f + 1
			}
			return nil, domain.NewInsufficientFundsError(total, required)
		}
		return &selection{notes, total, total - f, f, 0}, nil
	}

	if fee != nil {
		target, err := spendTarget(available, amount, *fee)
		if err != nil {
			return nil, err
		}
		notes, total, err := SelectNotes(available, target)
		if err != nil {
			return nil, err
		}
		return &selection{notes, total, amount, *fee, total - amount - *fee}, nil
	}

	f := estimate(1)
	for i := 0; i < maxFeeIterations; i++ {
		target, err := spendTarget(available, amount, f)
		if err != nil {
			return nil, err
		}
		notes, total, err := SelectNotes(available, target)
		if err != nil {
			return nil, err
		}
		next := estimate(len(notes))
		if next <= f {
			return &selection{notes, total, amount, f, total - amount - f}, nil
		}
		f = next
	}
	return nil, fmt.Errorf("fee estimation did not converge")
}

// spendTarget returns amount plus fee. A sum that doesn't fit in an uint64
// can't be covered by any set of notes.
func spendTarget(available []domain.Note, amount, fee uint64) (uint64, error) {
	if amount > math.MaxUint64-fee {
		total := uint64(0)
		for _, n := range available {
			if n.IsAvailable() {
				total += n.Amount
			}
		}
		return 0, domain.NewInsufficientFundsError(total, math.MaxUint64)
	}
	return amount + fee, nil
}
