package sim

import (
	"errors"
	"sync"
	"testing"

	"github.com/shaiso/Simula/internal/domain"
	"github.com/shaiso/Simula/internal/expr"
	"github.com/shaiso/Simula/internal/nodes"
)

func testRegistry() *nodes.Registry {
	return nodes.DefaultRegistry(expr.New())
}

// chainScenario — constant → formula → output.
func chainScenario() *domain.Scenario {
	return &domain.Scenario{
		Nodes: []domain.Node{
			{ID: "base", Type: "constant", Config: map[string]any{"value": 10.0}},
			{ID: "calc", Type: "formula", Config: map[string]any{
				"expression": "inputs.base.value * 2",
			}},
			{ID: "out", Type: "output"},
		},
		Edges: []domain.Edge{
			{Source: "base", Target: "calc"},
			{Source: "calc", Target: "out"},
		},
	}
}

func TestExecution_Lifecycle(t *testing.T) {
	exec, err := NewExecution(Config{
		Scenario: chainScenario(),
		Registry: testRegistry(),
		Seed:     1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if exec.Status() != domain.StatusIdle {
		t.Errorf("new execution should be IDLE, got %s", exec.Status())
	}

	// Tick до Start запрещён
	if err := exec.Tick(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning before start, got %v", err)
	}

	if err := exec.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if exec.Status() != domain.StatusRunning {
		t.Errorf("expected RUNNING, got %s", exec.Status())
	}

	// Повторный Start запрещён
	if err := exec.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}

	if err := exec.Tick(); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if exec.CurrentTick() != 1 {
		t.Errorf("expected tick 1, got %d", exec.CurrentTick())
	}

	// Pause → Tick запрещён → Resume → Tick снова работает
	if err := exec.Pause(); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if err := exec.Tick(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning while paused, got %v", err)
	}
	if err := exec.Resume(); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if err := exec.Tick(); err != nil {
		t.Fatalf("tick after resume failed: %v", err)
	}
	if exec.CurrentTick() != 2 {
		t.Errorf("expected tick 2, got %d", exec.CurrentTick())
	}

	// Stop терминален
	if err := exec.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if !exec.Status().IsTerminal() {
		t.Errorf("expected terminal status, got %s", exec.Status())
	}
	if err := exec.Stop(); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped on double stop, got %v", err)
	}
	if err := exec.Resume(); !errors.Is(err, ErrNotPaused) {
		t.Errorf("expected ErrNotPaused after stop, got %v", err)
	}
}

func TestExecution_ChainPropagation(t *testing.T) {
	exec, err := NewExecution(Config{
		Scenario: chainScenario(),
		Registry: testRegistry(),
		Seed:     1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := exec.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := exec.Tick(); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	// Значение проходит всю цепочку за один тик
	snap := exec.Snapshot()
	if snap["base"].Value != 10.0 {
		t.Errorf("base: expected 10.0, got %v", snap["base"].Value)
	}
	if snap["calc"].Value != 20.0 {
		t.Errorf("calc: expected 20.0, got %v", snap["calc"].Value)
	}
	if snap["out"].Value != 20.0 {
		t.Errorf("out: expected 20.0, got %v", snap["out"].Value)
	}
}

func TestExecution_VariableSubstitution(t *testing.T) {
	sc := &domain.Scenario{
		Nodes: []domain.Node{
			{ID: "const", Type: "constant", Config: map[string]any{
				"value": "{{setpoint}}",
			}},
			{ID: "calc", Type: "formula", Config: map[string]any{
				"expression": "float(inputs.const.value) + 1.0",
			}},
		},
		Edges: []domain.Edge{
			{Source: "const", Target: "calc"},
		},
	}

	exec, err := NewExecution(Config{
		Scenario:  sc,
		Registry:  testRegistry(),
		Variables: map[string]any{"setpoint": 21.5},
		Seed:      1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := exec.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := exec.Tick(); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	// Плейсхолдер подставлен строкой, формула парсит её обратно
	snap := exec.Snapshot()
	if snap["const"].Value != "21.5" {
		t.Errorf("const: expected '21.5', got %v", snap["const"].Value)
	}
	if snap["calc"].Value != 22.5 {
		t.Errorf("calc: expected 22.5, got %v", snap["calc"].Value)
	}
}

func TestExecution_FeedbackReadsPreviousTick(t *testing.T) {
	// Аккумулятор: acc читает самого себя с прошлого тика
	sc := &domain.Scenario{
		Nodes: []domain.Node{
			{ID: "acc", Type: "formula", Config: map[string]any{
				"expression": "inputs.acc.value == nil ? 1 : inputs.acc.value + 1",
			}},
		},
		Edges: []domain.Edge{
			{Source: "acc", Target: "acc"},
		},
	}

	exec, err := NewExecution(Config{
		Scenario: sc,
		Registry: testRegistry(),
		Seed:     1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := exec.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// На тике 0 feedback-значение nil, дальше растёт на 1 за тик
	for tick := 0; tick < 5; tick++ {
		if err := exec.Tick(); err != nil {
			t.Fatalf("tick %d failed: %v", tick, err)
		}
		snap := exec.Snapshot()
		if snap["acc"].Error != "" {
			t.Fatalf("tick %d: unexpected node error: %s", tick, snap["acc"].Error)
		}
		if snap["acc"].Value != tick+1 {
			t.Errorf("tick %d: expected %d, got %v", tick, tick+1, snap["acc"].Value)
		}
	}
}

func TestExecution_NodeErrorIsolation(t *testing.T) {
	// Ошибка formula не прерывает тик остальных узлов
	sc := &domain.Scenario{
		Nodes: []domain.Node{
			{ID: "good", Type: "constant", Config: map[string]any{"value": 1.0}},
			{ID: "bad", Type: "formula", Config: map[string]any{
				"expression": "inputs.ghost.value * 2",
			}},
			{ID: "dep", Type: "formula", Config: map[string]any{
				"expression": "inputs.bad.value == nil ? -1 : inputs.bad.value",
			}},
		},
		Edges: []domain.Edge{
			{Source: "bad", Target: "dep"},
		},
	}

	exec, err := NewExecution(Config{
		Scenario: sc,
		Registry: testRegistry(),
		Seed:     1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := exec.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := exec.Tick(); err != nil {
		t.Fatalf("tick should not fail on node error: %v", err)
	}

	snap := exec.Snapshot()
	if snap["bad"].Error == "" {
		t.Error("bad node should carry evaluation error")
	}
	if snap["bad"].Value != nil {
		t.Errorf("bad node value should be nil, got %v", snap["bad"].Value)
	}
	if snap["good"].Error != "" || snap["good"].Value != 1.0 {
		t.Error("good node should be unaffected")
	}
	// Потребитель ошибочного узла видит nil и продолжает работать
	if snap["dep"].Value != -1 {
		t.Errorf("dep: expected -1, got %v", snap["dep"].Value)
	}
}

func TestExecution_SnapshotIsolation(t *testing.T) {
	exec, err := NewExecution(Config{
		Scenario: chainScenario(),
		Registry: testRegistry(),
		Seed:     1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := exec.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := exec.Tick(); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	// Мутация снимка не влияет на состояние execution
	snap := exec.Snapshot()
	st := snap["base"]
	st.Value = 999.0
	snap["base"] = st

	fresh := exec.Snapshot()
	if fresh["base"].Value != 10.0 {
		t.Errorf("snapshot mutation leaked into execution state: %v", fresh["base"].Value)
	}
}

func TestExecution_ConcurrentTicksSerialized(t *testing.T) {
	exec, err := NewExecution(Config{
		Scenario: chainScenario(),
		Registry: testRegistry(),
		Seed:     1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := exec.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Каждый успешный Tick продвигает счётчик ровно на один
	const goroutines = 8
	const ticksEach = 25

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < ticksEach; i++ {
				if err := exec.Tick(); err != nil {
					t.Errorf("tick failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if exec.CurrentTick() != goroutines*ticksEach {
		t.Errorf("expected %d ticks, got %d", goroutines*ticksEach, exec.CurrentTick())
	}
}

func TestExecution_InvalidScenario(t *testing.T) {
	sc := &domain.Scenario{
		Nodes: []domain.Node{
			{ID: "calc", Type: "formula", Config: map[string]any{}},
		},
	}

	_, err := NewExecution(Config{Scenario: sc, Registry: testRegistry()})
	if err == nil {
		t.Fatal("expected construction error for invalid config")
	}
}

func TestRestore_ResumesFromSavedTick(t *testing.T) {
	cfg := Config{
		Scenario: chainScenario(),
		Registry: testRegistry(),
	}

	// Прогоняем несколько тиков и сохраняем запись
	exec, err := NewExecution(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.Seed = exec.Seed()
	if err := exec.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := exec.Tick(); err != nil {
			t.Fatalf("tick failed: %v", err)
		}
	}
	if err := exec.Pause(); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	rec := exec.Record()

	// Восстанавливаем из записи
	restored, err := Restore(cfg, rec)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	if restored.Status() != domain.StatusPaused {
		t.Errorf("restored execution should be PAUSED, got %s", restored.Status())
	}
	if restored.CurrentTick() != 3 {
		t.Errorf("expected tick 3, got %d", restored.CurrentTick())
	}
	if restored.ID() != exec.ID() {
		t.Error("restored execution should keep its ID")
	}

	// Состояние узлов перенесено
	snap := restored.Snapshot()
	if snap["calc"].Value != 20.0 {
		t.Errorf("calc: expected 20.0, got %v", snap["calc"].Value)
	}

	// После resume тики продолжаются с сохранённого счётчика
	if err := restored.Resume(); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if err := restored.Tick(); err != nil {
		t.Fatalf("tick after restore failed: %v", err)
	}
	if restored.CurrentTick() != 4 {
		t.Errorf("expected tick 4, got %d", restored.CurrentTick())
	}
}

func TestRecord_ConsistentUnderConcurrentTicks(t *testing.T) {
	exec, err := NewExecution(Config{
		Scenario: chainScenario(),
		Registry: testRegistry(),
		Seed:     1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := exec.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// calc пересчитывается каждый тик, поэтому в согласованной записи
	// его LastUpdatedTick всегда равен счётчику минус один
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if err := exec.Tick(); err != nil {
				t.Errorf("tick failed: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 500; i++ {
		rec := exec.Record()
		if rec.CurrentTick == 0 {
			continue
		}
		st, ok := rec.NodeStates["calc"]
		if !ok {
			t.Fatal("в записи нет узла calc")
		}
		if st.LastUpdatedTick != rec.CurrentTick-1 {
			t.Fatalf("запись смешала тики: счётчик %d, узел обновлён на тике %d",
				rec.CurrentTick, st.LastUpdatedTick)
		}
	}
	<-done

	rec := exec.Record()
	if rec.CurrentTick != 200 {
		t.Errorf("expected tick 200, got %d", rec.CurrentTick)
	}
}
