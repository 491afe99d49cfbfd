package api

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/samber/lo"

	"github.com/Danielfrancoi/matrices/internal/matrix"
)

// operands builds A and B from the request rows, or from Size and Seed when
// no rows were sent.
func operands[T matrix.Element](req *MultiplyRequest, maxSize int) (a, b *matrix.Matrix[T], err error) {
	if req.A == nil && req.B == nil {
		return random[T](req, maxSize)
	}
	if req.A == nil || req.B == nil {
		return nil, nil, newInvalidRequest("a and b must be sent together")
	}
	if len(req.A) > maxSize || len(req.B) > maxSize {
		return nil, nil, newInvalidRequest(fmt.Sprintf("matrices larger than %d rows are not accepted", maxSize))
	}
	if a, err = fromRows[T]("a", req.A); err != nil {
		return nil, nil, err
	}
	if b, err = fromRows[T]("b", req.B); err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func random[T matrix.Element](req *MultiplyRequest, maxSize int) (a, b *matrix.Matrix[T], err error) {
	if req.Size < 1 || req.Size > maxSize {
		return nil, nil, newInvalidRequest(fmt.Sprintf("size must be in [1,%d] when a and b are omitted, got %d", maxSize, req.Size))
	}
	seed := int64(1)
	if req.Seed != nil {
		seed = *req.Seed
	}
	if a, err = matrix.New[T](req.Size); err != nil {
		return nil, nil, err
	}
	if b, err = matrix.New[T](req.Size); err != nil {
		return nil, nil, err
	}
	matrix.FillRandom(a, seed)
	matrix.FillRandom(b, seed+1)
	return a, b, nil
}

func fromRows[T matrix.Element](name string, rows [][]json.Number) (*matrix.Matrix[T], error) {
	var bad error
	cells := lo.Map(rows, func(row []json.Number, i int) []T {
		return lo.Map(row, func(num json.Number, j int) T {
			v, err := parseCell[T](num)
			if err != nil && bad == nil {
				bad = newInvalidRequest(fmt.Sprintf("%s[%d][%d]: %v", name, i, j, err))
			}
			return v
		})
	})
	if bad != nil {
		return nil, bad
	}
	m, err := matrix.FromRows(cells)
	if err != nil {
		return nil, newInvalidRequest(fmt.Sprintf("%s: %v", name, err))
	}
	return m, nil
}

func parseCell[T matrix.Element](num json.Number) (T, error) {
	if matrix.DTypeOf[T]().Float() {
		f, err := num.Float64()
		return T(f), err
	}
	i, err := num.Int64()
	if err != nil {
		return 0, err
	}
	if int64(T(i)) != i {
		return 0, fmt.Errorf("%d overflows %s", i, matrix.DTypeOf[T]())
	}
	return T(i), nil
}
