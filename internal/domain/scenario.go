package domain

// Scenario — граф симуляции: узлы и рёбра.
//
// Scenario — это "программа" для Simula: описание того, какие узлы
// существуют, как они сконфигурированы и как связаны между собой.
// Хранится внутри Template как JSONB.
type Scenario struct {
	// Version — версия формата сценария (например, "3.0").
	// Используется для обратной совместимости при миграциях.
	Version string `json:"version,omitempty"`

	// Nodes — узлы графа. ID узлов должны быть уникальны.
	Nodes []Node `json:"nodes"`

	// Edges — направленные рёбра между узлами.
	Edges []Edge `json:"edges,omitempty"`
}

// Node — типизированный узел графа симуляции.
type Node struct {
	// ID — уникальный идентификатор узла в рамках сценария.
	// Используется в рёбрах и в выражениях формул (inputs.{id}.value).
	ID string `json:"id"`

	// Type — тип узла: "datasource", "formula", "output", "constant".
	// Набор типов расширяем через nodes.Registry.
	Type string `json:"type"`

	// Label — отображаемое имя узла для UI.
	Label string `json:"label,omitempty"`

	// Config — конфигурация узла (зависит от типа).
	// Для datasource: interval, value_min, value_max
	// Для formula: expression
	// Для constant: value
	// Строковые поля могут содержать плейсхолдеры {{var.path}},
	// подставляемые из переменных execution при старте.
	Config map[string]any `json:"config,omitempty"`
}

// Edge — направленное ребро: выход source подаётся на вход target.
type Edge struct {
	// Source — ID узла-источника.
	Source string `json:"source"`

	// Target — ID узла-приёмника.
	Target string `json:"target"`

	// Label — опциональная подпись ребра (ключ маппинга для UI).
	Label string `json:"label,omitempty"`
}

// NodeIDs возвращает множество ID всех узлов сценария.
func (s *Scenario) NodeIDs() map[string]bool {
	ids := make(map[string]bool, len(s.Nodes))
	for i := range s.Nodes {
		ids[s.Nodes[i].ID] = true
	}
	return ids
}

// FindNode возвращает узел по ID или nil.
func (s *Scenario) FindNode(id string) *Node {
	for i := range s.Nodes {
		if s.Nodes[i].ID == id {
			return &s.Nodes[i]
		}
	}
	return nil
}
