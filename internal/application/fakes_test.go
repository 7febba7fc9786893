package app

import (
	"context"
	"errors"
	"sync/atomic"

	"eco-scan/internal/domain/entity"
	"eco-scan/internal/domain/port"
)

// deviceTensor ведёт себя как буфер на GPU.
type deviceTensor struct {
	rows []any
	err  error
}

func (t deviceTensor) CopyToHost() ([]any, error) {
	if t.err != nil {
		return nil, t.err
	}
	return t.rows, nil
}

// hostArray ведёт себя как массив с методом приведения к списку.
type hostArray struct {
	rows []any
	err  error
}

func (a hostArray) ToList() ([]any, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.rows, nil
}

// brokenTensor не поддерживает ни одну стратегию.
type brokenTensor struct{}

func (brokenTensor) CopyToHost() ([]any, error) { return nil, errors.New("device lost") }
func (brokenTensor) ToList() ([]any, error)     { return nil, errors.New("not convertible") }

// panickyArray паникует при чтении.
type panickyArray struct{}

func (panickyArray) ToList() ([]any, error) { panic("boom") }

type fakeDetector struct {
	results []entity.RawResult
	err     error
	panic   any

	calls      atomic.Int32
	lastThresh float64
	lastDevice string
	closed     bool
}

func (d *fakeDetector) Detect(ctx context.Context, imagePath string, confThreshold float64, device string) ([]entity.RawResult, error) {
	d.calls.Add(1)
	d.lastThresh = confThreshold
	d.lastDevice = device
	if d.panic != nil {
		panic(d.panic)
	}
	return d.results, d.err
}

func (d *fakeDetector) Close() error {
	d.closed = true
	return nil
}

func factoryFor(det port.Detector, err error, calls *atomic.Int32) port.DetectorFactory {
	return func(ctx context.Context) (port.Detector, error) {
		if calls != nil {
			calls.Add(1)
		}
		if err != nil {
			return nil, err
		}
		return det, nil
	}
}

func columnar(names map[int]string, xyxy, conf, cls any) entity.RawResult {
	return entity.RawResult{
		Names:   names,
		Columns: &entity.Columns{XYXY: xyxy, Conf: conf, Cls: cls},
	}
}

func labels(dets []entity.Detection) []string {
	out := make([]string, 0, len(dets))
	for _, d := range dets {
		out = append(out, d.Name("<nil>"))
	}
	return out
}
