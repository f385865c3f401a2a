package analysis

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAnalyze_EmptyPrompt(t *testing.T) {
	for _, prompt := range []string{"", "   ", "\n\t\n"} {
		got := Analyze(prompt)
		if got.IsHierarchical {
			t.Fatalf("Analyze(%q).IsHierarchical = true, want false", prompt)
		}
		if len(got.Modules) != 0 {
			t.Fatalf("Analyze(%q).Modules = %v, want none", prompt, got.Modules)
		}
		if got.Confidence != 0 {
			t.Fatalf("Analyze(%q).Confidence = %d, want 0", prompt, got.Confidence)
		}
		if got.SuggestedLevels != 1 {
			t.Fatalf("Analyze(%q).SuggestedLevels = %d, want 1", prompt, got.SuggestedLevels)
		}
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	prompts := []string{
		"Sistema con módulos INTRANET, COMERCIAL y OPERACIONES",
		"Create a basic todo list application with add, edit, and delete functionality",
		"Module 1: Sales\n- order management\n- invoicing\nModule 2: Inventory\n- stock control",
		"Project:\n1. Setup\n  1.1 Install tools\n  1.2 Configure CI\n2. Build",
	}
	for _, p := range prompts {
		first := Analyze(p)
		second := Analyze(p)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("Analyze(%q) not deterministic (-first +second):\n%s", p, diff)
		}
	}
}

func TestAnalyze_SpanishModularPrompt(t *testing.T) {
	got := Analyze("Sistema con módulos INTRANET, COMERCIAL y OPERACIONES")

	if got.Language != LanguageSpanish {
		t.Fatalf("Language = %q, want %q", got.Language, LanguageSpanish)
	}
	if !got.IsHierarchical {
		t.Fatal("IsHierarchical = false, want true")
	}
	want := []string{"INTRANET", "COMERCIAL", "OPERACIONES"}
	names := make(map[string]bool)
	for _, m := range got.Modules {
		names[m.Name] = true
	}
	for _, w := range want {
		if !names[w] {
			t.Fatalf("Modules = %v, missing %q", got.Modules, w)
		}
	}
}

func TestAnalyze_SimpleEnglishPrompt(t *testing.T) {
	got := Analyze("Create a basic todo list application with add, edit, and delete functionality")

	if got.Language != LanguageEnglish {
		t.Fatalf("Language = %q, want %q", got.Language, LanguageEnglish)
	}
	if got.IsHierarchical {
		t.Fatal("IsHierarchical = true, want false")
	}
	if got.Complexity != ComplexitySimple {
		t.Fatalf("Complexity = %q, want %q", got.Complexity, ComplexitySimple)
	}
	if got.SuggestedLevels != 1 {
		t.Fatalf("SuggestedLevels = %d, want 1", got.SuggestedLevels)
	}
	if len(got.Modules) != 0 {
		t.Fatalf("Modules = %v, want none", got.Modules)
	}
}

func TestAnalyze_NumberedModulesTakePriority(t *testing.T) {
	prompt := strings.Join([]string{
		"Build an INTRANET system.",
		"Module 1: Sales",
		"- order management",
		"- invoicing: generate monthly invoices",
		"Module 2: Warehouse",
		"- stock control",
	}, "\n")

	got := Analyze(prompt)

	if len(got.Modules) != 2 {
		t.Fatalf("Modules = %v, want exactly the 2 numbered modules", got.Modules)
	}
	if got.Modules[0].Name != "Sales" || got.Modules[1].Name != "Warehouse" {
		t.Fatalf("Modules = [%s, %s], want [Sales, Warehouse]", got.Modules[0].Name, got.Modules[1].Name)
	}
	if got.Modules[0].Order != 0 || got.Modules[1].Order != 1 {
		t.Fatalf("Order = [%d, %d], want [0, 1]", got.Modules[0].Order, got.Modules[1].Order)
	}
	if !got.IsHierarchical {
		t.Fatal("IsHierarchical = false, want true with 2 modules")
	}
}

func TestAnalyze_ComponentHarvest(t *testing.T) {
	prompt := strings.Join([]string{
		"Module 1: Sales",
		"- order management",
		"- invoicing: generate monthly invoices",
		"some unrelated prose that is neither listed nor keyworded",
		"Module 2: Warehouse",
		"- stock control",
	}, "\n")

	got := Analyze(prompt)
	if len(got.Modules) != 2 {
		t.Fatalf("Modules = %v, want 2", got.Modules)
	}

	sales := got.Modules[0]
	if len(sales.Components) != 2 {
		t.Fatalf("Sales components = %v, want 2", sales.Components)
	}
	if sales.Components[0].Name != "order management" {
		t.Fatalf("component[0] = %q, want %q", sales.Components[0].Name, "order management")
	}
	if sales.Components[1].Name != "invoicing" || sales.Components[1].Description != "generate monthly invoices" {
		t.Fatalf("component[1] = %+v, want invoicing / generate monthly invoices", sales.Components[1])
	}
}

func TestAnalyze_ComponentHarvestStopsAtNextModule(t *testing.T) {
	prompt := strings.Join([]string{
		"Module 1: Sales",
		"Module 2: Warehouse",
		"- stock control",
	}, "\n")

	got := Analyze(prompt)
	if len(got.Modules) != 2 {
		t.Fatalf("Modules = %v, want 2", got.Modules)
	}
	if len(got.Modules[0].Components) != 0 {
		t.Fatalf("Sales components = %v, want none (next module starts immediately)", got.Modules[0].Components)
	}
	if len(got.Modules[1].Components) != 1 {
		t.Fatalf("Warehouse components = %v, want 1", got.Modules[1].Components)
	}
}

func TestAnalyze_NestedStructure(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   bool
	}{
		{
			name:   "indented bullets",
			prompt: "- parent item\n  - child item\n  - another child",
			want:   true,
		},
		{
			name:   "multi level numbering",
			prompt: "1. Setup\n1.1 Install tools\n1.2 Configure",
			want:   true,
		},
		{
			name:   "flat bullets",
			prompt: "- one\n- two\n- three",
			want:   false,
		},
		{
			name:   "plain prose",
			prompt: "Just build something small and useful.",
			want:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(tt.prompt)
			if got.Indicators.HasNestedStructure != tt.want {
				t.Fatalf("HasNestedStructure = %v, want %v", got.Indicators.HasNestedStructure, tt.want)
			}
		})
	}
}

func TestAnalyze_ComplexityBuckets(t *testing.T) {
	detailed := strings.Join([]string{
		"Sistema de gestión empresarial:",
		"Module 1: Ventas",
		"- pedidos",
		"Module 2: Inventario",
		"- stock",
		"Module 3: Reportes",
		"- kpi",
		"Module 4: Usuarios",
		"1. fase uno",
		"  1.1 subtarea",
	}, "\n")

	got := Analyze(detailed)
	if got.Complexity != ComplexityDetailed {
		t.Fatalf("Complexity = %q, want detailed", got.Complexity)
	}
	if got.SuggestedLevels != 3 {
		t.Fatalf("SuggestedLevels = %d, want 3", got.SuggestedLevels)
	}
	if !got.IsHierarchical {
		t.Fatal("IsHierarchical = false, want true")
	}

	medium := Analyze("Module 1: API\n- endpoints\nModule 2: Frontend\n- views")
	if medium.Complexity != ComplexityMedium {
		t.Fatalf("Complexity = %q, want medium", medium.Complexity)
	}
	if medium.SuggestedLevels != 2 {
		t.Fatalf("SuggestedLevels = %d, want 2", medium.SuggestedLevels)
	}
}

func TestAnalyze_ConfidenceCapped(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("Sistema completo de gestión:\n")
	names := []string{"Ventas", "Inventario", "Reportes", "Usuarios", "Facturación", "Logística"}
	for i, n := range names {
		sb.WriteString("Module ")
		sb.WriteByte(byte('1' + i))
		sb.WriteString(": ")
		sb.WriteString(n)
		sb.WriteString("\n")
	}
	sb.WriteString("1. paso\n  1.1 subpaso\n")
	sb.WriteString(strings.Repeat("palabra relleno descripción detallada ", 40))

	got := Analyze(sb.String())
	if got.Confidence > 100 {
		t.Fatalf("Confidence = %d, want <= 100", got.Confidence)
	}
	if got.Confidence < 60 {
		t.Fatalf("Confidence = %d, want >= 60 for heavily structured prompt", got.Confidence)
	}
}
