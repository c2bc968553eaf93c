package tutor

import (
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		question string
		want     Topic
	}{
		{"How do for loops work?", TopicLoops},
		{"explain LOOP syntax", TopicLoops},
		{"What is a function?", TopicFunctions},
		{"how do I use def", TopicFunctions},
		{"How do I sort a list?", TopicLists},
		{"How does an if statement work?", TopicConditionals},
		{"What is a CONDITION?", TopicConditionals},
		{"How do tuples work?", TopicGeneral},
		{"", TopicGeneral},
		// substring matching is intentionally naive
		{"Where is more information?", TopicLoops},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			if got := Classify(tt.question); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.question, got, tt.want)
			}
		})
	}
}

func TestClassify_Priority(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     Topic
	}{
		{"loop beats function", "Can I call a function inside a loop?", TopicLoops},
		{"function beats list", "write a function that returns a list", TopicFunctions},
		{"list beats conditional", "check if a list is empty", TopicLists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.question); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.question, got, tt.want)
			}
		})
	}
}

func TestRespond_KeywordTopics(t *testing.T) {
	if got := Respond("for loop please"); got != Template(TopicLoops) {
		t.Errorf("loop question returned %q", got)
	}
	if got := Respond("teach me def"); got != Template(TopicFunctions) {
		t.Errorf("def question returned %q", got)
	}
	if !strings.HasPrefix(Template(TopicLoops), "**For Loops in Python**") {
		t.Error("loop template has unexpected heading")
	}
	if !strings.Contains(Template(TopicFunctions), "```python") {
		t.Error("function template should contain a python code block")
	}
}

func TestRespond_GeneralEchoesQuestion(t *testing.T) {
	question := "How do Tuples work?"
	got := Respond(question)

	if !strings.HasPrefix(got, `Great question about "How do Tuples work?"!`) {
		t.Errorf("general reply should quote the original question, got %q", got)
	}
	if !strings.Contains(got, "Try asking about a specific topic!") {
		t.Error("general reply should offer topic suggestions")
	}
}

func TestRespond_Idempotent(t *testing.T) {
	for _, q := range []string{"loops", "Tuples?", "def", "list", "if"} {
		if Respond(q) != Respond(q) {
			t.Errorf("Respond(%q) not idempotent", q)
		}
	}
}

func TestTemplate_AllKeywordTopicsHaveText(t *testing.T) {
	for _, topic := range Topics() {
		if topic == TopicGeneral {
			if Template(topic) != "" {
				t.Error("general topic has no fixed template")
			}
			continue
		}
		if Template(topic) == "" {
			t.Errorf("topic %q has no template", topic)
		}
	}
}
