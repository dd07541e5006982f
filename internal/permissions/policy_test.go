package permissions

import (
	"errors"
	"testing"
)

// mockPrompter implements Prompter for testing
type mockPrompter struct {
	response string
	err      error
	asked    []string
}

func (m *mockPrompter) Ask(toolName string, level Level, description string) (string, error) {
	m.asked = append(m.asked, toolName)
	return m.response, m.err
}

func TestMode_String(t *testing.T) {
	tests := []struct {
		mode     Mode
		expected string
	}{
		{ModeAsk, "ask"},
		{ModeAuto, "auto"},
		{ModeStrict, "strict"},
		{Mode(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.mode.String(); got != tt.expected {
				t.Errorf("Mode.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPolicy_ModeAuto(t *testing.T) {
	prompter := &mockPrompter{response: "n"}
	policy := NewPolicy(ModeAuto, prompter)

	tests := []struct {
		name  string
		level Level
	}{
		{"read_file", LevelRead},
		{"clear_context", LevelContext},
		{"execute_command", LevelExecute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed, err := policy.Check(tt.name, tt.level, "test")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !allowed {
				t.Errorf("ModeAuto should allow %s", tt.name)
			}
		})
	}
	if len(prompter.asked) != 0 {
		t.Errorf("ModeAuto should never prompt, asked %v", prompter.asked)
	}
}

func TestPolicy_ModeAsk(t *testing.T) {
	tests := []struct {
		name     string
		level    Level
		response string
		expected bool
		prompted bool
	}{
		{"read_file", LevelRead, "n", true, false},
		{"add_to_context", LevelContext, "n", true, false},
		{"execute_command", LevelExecute, "y", true, true},
		{"execute_command", LevelExecute, "yes", true, true},
		{"execute_command", LevelExecute, "n", false, true},
		{"execute_command", LevelExecute, "maybe", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.response, func(t *testing.T) {
			prompter := &mockPrompter{response: tt.response}
			policy := NewPolicy(ModeAsk, prompter)

			allowed, err := policy.Check(tt.name, tt.level, "test")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if allowed != tt.expected {
				t.Errorf("Check(%s) = %v, want %v", tt.name, allowed, tt.expected)
			}
			if (len(prompter.asked) > 0) != tt.prompted {
				t.Errorf("prompted = %v, want %v", len(prompter.asked) > 0, tt.prompted)
			}
		})
	}
}

func TestPolicy_ModeStrictPromptsForReads(t *testing.T) {
	prompter := &mockPrompter{response: "n"}
	policy := NewPolicy(ModeStrict, prompter)

	allowed, err := policy.Check("read_file", LevelRead, "Read go.mod")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Error("expected read to be denied when user says no")
	}
	if len(prompter.asked) != 1 {
		t.Errorf("expected one prompt, got %d", len(prompter.asked))
	}
}

func TestPolicy_NilPrompterDenies(t *testing.T) {
	policy := NewPolicy(ModeAsk, nil)

	allowed, err := policy.Check("execute_command", LevelExecute, "Run: ls")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Error("expected denial without a prompter")
	}
}

func TestPolicy_PromptError(t *testing.T) {
	policy := NewPolicy(ModeAsk, &mockPrompter{err: errors.New("EOF")})

	allowed, err := policy.Check("execute_command", LevelExecute, "Run: ls")
	if err == nil {
		t.Fatal("expected error")
	}
	if allowed {
		t.Error("expected denial on prompt error")
	}
}

func TestPolicy_CacheAlwaysAllow(t *testing.T) {
	prompter := &mockPrompter{response: "a"}
	policy := NewPolicy(ModeAsk, prompter)

	if allowed, _ := policy.Check("execute_command", LevelExecute, "test"); !allowed {
		t.Error("expected first call to allow")
	}

	prompter.response = "n"
	if allowed, _ := policy.Check("execute_command", LevelExecute, "test"); !allowed {
		t.Error("expected cached always-allow")
	}
	if len(prompter.asked) != 1 {
		t.Errorf("expected a single prompt, got %d", len(prompter.asked))
	}
}

func TestPolicy_CacheNeverAllow(t *testing.T) {
	policy := NewPolicy(ModeAsk, &mockPrompter{response: "v"})

	if allowed, _ := policy.Check("execute_command", LevelExecute, "test"); allowed {
		t.Error("expected first call to deny")
	}

	decision, ok := policy.GetCachedDecision("execute_command")
	if !ok {
		t.Error("expected cached decision")
	}
	if decision != DecisionNeverAllow {
		t.Errorf("expected DecisionNeverAllow, got %v", decision)
	}
}

func TestPolicy_ClearCache(t *testing.T) {
	policy := NewPolicy(ModeAsk, &mockPrompter{response: "a"})

	_, _ = policy.Check("execute_command", LevelExecute, "test")
	if _, ok := policy.GetCachedDecision("execute_command"); !ok {
		t.Error("expected cached decision before clear")
	}

	policy.ClearCache()

	if _, ok := policy.GetCachedDecision("execute_command"); ok {
		t.Error("expected no cached decision after clear")
	}
}

func TestPolicy_SetMode(t *testing.T) {
	policy := NewPolicy(ModeAsk, nil)
	policy.SetMode(ModeAuto)
	if policy.GetMode() != ModeAuto {
		t.Errorf("after SetMode(ModeAuto), GetMode() = %v", policy.GetMode())
	}
}
