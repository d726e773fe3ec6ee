package nodes

import (
	"errors"
	"math/rand"
	"strconv"

	"github.com/shaiso/Simula/internal/domain"
)

// Ошибки узлов.
var (
	// ErrTypeNotFound — тип узла не найден в реестре.
	ErrTypeNotFound = errors.New("node type not found")

	// ErrInvalidConfig — невалидная конфигурация узла.
	ErrInvalidConfig = errors.New("invalid node config")

	// ErrNoUpstream — у узла нет входящих связей, хотя тип их требует.
	ErrNoUpstream = errors.New("node has no upstream")
)

// Evaluator — стратегия вычисления одного типа узлов.
//
// Каждый тип узла (datasource, formula, output, constant) реализует
// этот интерфейс. Добавление нового типа — регистрация новой стратегии
// в Registry, планировщик и модель графа при этом не меняются.
type Evaluator interface {
	// Type возвращает тег типа узла.
	Type() string

	// ValidateConfig проверяет конфигурацию при загрузке графа.
	// Ошибка здесь — фатальная ошибка построения (ConstructionError).
	ValidateConfig(config map[string]any) error

	// Evaluate вычисляет значение узла на одном тике.
	// Ошибка вычисления сохраняется в NodeState.Error и не
	// прерывает тик остального графа.
	Evaluate(req *Request) (*Response, error)
}

// Request — входные данные для вычисления узла на тике.
type Request struct {
	// Node — узел с уже подставленной конфигурацией.
	Node *domain.Node

	// Tick — номер текущего тика (с нуля).
	Tick int

	// Upstream — значения узлов-источников (sourceID → value).
	// Для feedback-рёбер планировщик уже подставил значение
	// предыдущего тика; для ошибочных источников — nil.
	Upstream map[string]any

	// Sources — ID источников в детерминированном порядке
	// (по возрастанию ID).
	Sources []string

	// Previous — состояние этого узла на предыдущем тике.
	Previous domain.NodeState

	// Rand — генератор случайных чисел execution.
	// Seed фиксирован на execution, прогоны воспроизводимы.
	Rand *rand.Rand
}

// Response — результат вычисления узла.
type Response struct {
	// Value — новое значение узла.
	Value any

	// Details — человекочитаемая строка для UI.
	Details string

	// Retained — true, если узел сохранил прежнее значение
	// (например, datasource вне своего интервала). Такой узел
	// не помечается активным и не обновляет LastUpdatedTick.
	Retained bool
}

// --- Хелперы для чтения конфигурации ---
//
// После подстановки {{var.path}} числовые значения могут приходить
// строками, поэтому хелперы принимают и строковые представления.

// GetConfigString извлекает строковое значение из конфига.
func GetConfigString(config map[string]any, key string) string {
	if v, ok := config[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetConfigInt извлекает целое значение из конфига.
// Возвращает def, если ключа нет или значение не приводится к int.
func GetConfigInt(config map[string]any, key string, def int) int {
	v, ok := config[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(n); err == nil {
			return parsed
		}
	}
	return def
}

// GetConfigFloat извлекает число с плавающей точкой из конфига.
func GetConfigFloat(config map[string]any, key string, def float64) float64 {
	v, ok := config[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		if parsed, err := strconv.ParseFloat(n, 64); err == nil {
			return parsed
		}
	}
	return def
}

// HasConfigKey проверяет наличие ключа в конфиге.
func HasConfigKey(config map[string]any, key string) bool {
	_, ok := config[key]
	return ok
}
