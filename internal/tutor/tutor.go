package tutor

import "strings"

// Topic identifies which canned explanation a question maps to.
type Topic string

const (
	TopicLoops        Topic = "loops"
	TopicFunctions    Topic = "functions"
	TopicLists        Topic = "lists"
	TopicConditionals Topic = "conditionals"
	TopicGeneral      Topic = "general"
)

// rule pairs a topic with the lowercase keywords that select it.
type rule struct {
	topic    Topic
	keywords []string
}

// rules are checked in order; the first rule with a matching keyword wins.
var rules = []rule{
	{topic: TopicLoops, keywords: []string{"loop", "for"}},
	{topic: TopicFunctions, keywords: []string{"function", "def"}},
	{topic: TopicLists, keywords: []string{"list"}},
	{topic: TopicConditionals, keywords: []string{"if", "condition"}},
}

// Topics returns the keyword topics in priority order, followed by TopicGeneral.
func Topics() []Topic {
	topics := make([]Topic, 0, len(rules)+1)
	for _, r := range rules {
		topics = append(topics, r.topic)
	}
	return append(topics, TopicGeneral)
}

// Classify returns the topic for a question using case-insensitive substring matching.
func Classify(question string) Topic {
	lower := strings.ToLower(question)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.topic
			}
		}
	}
	return TopicGeneral
}

// Respond returns the canned tutor reply for a question.
// The general reply quotes the question exactly as it was asked.
func Respond(question string) string {
	topic := Classify(question)
	if topic == TopicGeneral {
		return generalResponse(question)
	}
	return Template(topic)
}

// Template returns the fixed reply for a keyword topic.
// TopicGeneral and unknown topics return "" since the general reply depends on the question.
func Template(topic Topic) string {
	return templates[topic]
}
