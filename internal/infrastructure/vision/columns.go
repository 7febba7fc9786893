package vision

import "errors"

// boxRows: рамки x1, y1, x2, y2, уже скопированные в память хоста.
type boxRows [][4]float32

// ToList отдаёт строки в виде, понятном экстрактору.
func (r boxRows) ToList() ([]any, error) {
	if r == nil {
		return nil, errors.New("no box rows")
	}
	out := make([]any, len(r))
	for i, row := range r {
		out[i] = []any{row[0], row[1], row[2], row[3]}
	}
	return out, nil
}
