package api

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Simula/internal/domain"
)

func TestTemplateFromDomain_Version(t *testing.T) {
	tmpl := domain.Template{
		ID:      uuid.New(),
		Name:    "greenhouse-demo",
		Version: "2.1",
		Scenario: domain.Scenario{
			Nodes: []domain.Node{{ID: "sensor", Type: "datasource"}},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	resp := TemplateFromDomain(tmpl)
	if resp.Version != "2.1" {
		t.Errorf("Version = %q, want %q", resp.Version, "2.1")
	}

	// Версия — пользовательская строка, в JSON она остаётся строкой
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"version":"2.1"`) {
		t.Errorf("в JSON нет строковой версии: %s", data)
	}
}

func TestCreateTemplateRequest_VersionDecoding(t *testing.T) {
	body := `{"name":"demo","version":"3.0","scenario":{"nodes":[],"edges":[]}}`

	var req CreateTemplateRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if req.Version != "3.0" {
		t.Errorf("Version = %q, want %q", req.Version, "3.0")
	}
}
