package nodes

import (
	"fmt"
)

const (
	// TypeDataSource — тег типа источника данных.
	TypeDataSource = "datasource"

	// Ключи конфигурации datasource.
	configInterval = "interval"
	configValueMin = "value_min"
	configValueMax = "value_max"
)

// DataSourceNode — узел-источник данных.
//
// На тиках, кратных interval, выдаёт псевдослучайное значение,
// равномерно распределённое на [value_min, value_max]; на остальных
// тиках сохраняет предыдущее значение. Генератор случайных чисел
// принадлежит execution и сидируется явно — прогон с фиксированным
// seed воспроизводим.
//
// Конфигурация:
//
//	{
//	    "interval": 1,        // период семплирования в тиках (>= 1)
//	    "value_min": 18.0,    // нижняя граница
//	    "value_max": 26.5     // верхняя граница
//	}
type DataSourceNode struct{}

// NewDataSourceNode создаёт новый DataSourceNode.
func NewDataSourceNode() *DataSourceNode {
	return &DataSourceNode{}
}

// Type возвращает тег типа.
func (n *DataSourceNode) Type() string {
	return TypeDataSource
}

// ValidateConfig проверяет конфигурацию datasource.
func (n *DataSourceNode) ValidateConfig(config map[string]any) error {
	interval := GetConfigInt(config, configInterval, 1)
	if interval < 1 {
		return fmt.Errorf("%w: %s: interval must be >= 1, got %d",
			ErrInvalidConfig, TypeDataSource, interval)
	}

	minVal := GetConfigFloat(config, configValueMin, 0)
	maxVal := GetConfigFloat(config, configValueMax, 1)
	if minVal > maxVal {
		return fmt.Errorf("%w: %s: value_min %g > value_max %g",
			ErrInvalidConfig, TypeDataSource, minVal, maxVal)
	}

	return nil
}

// Evaluate выдаёт новое значение на тиках, кратных interval,
// иначе сохраняет предыдущее.
func (n *DataSourceNode) Evaluate(req *Request) (*Response, error) {
	interval := GetConfigInt(req.Node.Config, configInterval, 1)

	if req.Tick%interval != 0 {
		return &Response{
			Value:    req.Previous.Value,
			Details:  req.Previous.Details,
			Retained: true,
		}, nil
	}

	minVal := GetConfigFloat(req.Node.Config, configValueMin, 0)
	maxVal := GetConfigFloat(req.Node.Config, configValueMax, 1)

	value := minVal + req.Rand.Float64()*(maxVal-minVal)

	return &Response{
		Value:   value,
		Details: fmt.Sprintf("sampled from [%g, %g]", minVal, maxVal),
	}, nil
}
