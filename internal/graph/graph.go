// Package graph expands a domain's static question list into the ordered,
// respondent-specific question sequence.
//
// The graph is recomputed from scratch on every call: base questions in
// authored order, each realized follow-up placed directly after the
// question that triggered it. A follow-up is realized once any recorded
// answer to its trigger has fired it, or once it has been answered itself,
// and from then on it keeps its place even if the trigger is edited back.
package graph

import (
	"iter"

	"github.com/sbenjam1n/bizassess/internal/assess"
)

// Node is one question in the dynamic graph.
type Node struct {
	Question assess.Question
	// Trigger is the id of the question that revealed this one; empty for base questions.
	Trigger string
	// Active is false for a realized follow-up whose trigger no longer fires.
	Active bool
}

// FollowUp reports whether the node was inserted by a trigger.
func (n Node) FollowUp() bool {
	return n.Trigger != ""
}

// CountsAsRequired reports whether the node gates domain completion.
func (n Node) CountsAsRequired() bool {
	return n.Question.Required && n.Active
}

// Graph is the ordered question sequence for one domain of one respondent.
type Graph struct {
	Domain assess.DomainID
	Nodes  []Node
}

// ForDomain builds the graph for an authored domain.
func ForDomain(d assess.Domain, r assess.DomainResponse) Graph {
	return Build(d.ID, d.Questions, d.FollowUps, r)
}

// Build expands base questions with the follow-ups realized by r.
func Build(domain assess.DomainID, base, followUps []assess.Question, r assess.DomainResponse) Graph {
	children := make(map[string][]assess.Question)
	for _, f := range followUps {
		if f.Conditional == nil {
			continue
		}
		children[f.Conditional.DependsOn] = append(children[f.Conditional.DependsOn], f)
	}

	g := Graph{Domain: domain, Nodes: make([]Node, 0, len(base))}
	placed := make(map[string]bool)

	var expand func(trigger string, triggerActive bool)
	expand = func(trigger string, triggerActive bool) {
		for _, f := range children[trigger] {
			if placed[f.ID] || !realized(f, r) {
				continue
			}
			active := false
			if triggerActive {
				if v, ok := r.Value(trigger); ok {
					active = f.Conditional.Fires(v)
				}
			}
			placed[f.ID] = true
			g.Nodes = append(g.Nodes, Node{Question: f, Trigger: trigger, Active: active})
			expand(f.ID, active)
		}
	}

	for _, q := range base {
		if placed[q.ID] {
			continue
		}
		placed[q.ID] = true
		g.Nodes = append(g.Nodes, Node{Question: q, Active: true})
		expand(q.ID, true)
	}
	return g
}

func realized(f assess.Question, r assess.DomainResponse) bool {
	if _, answered := r.Value(f.ID); answered {
		return true
	}
	cond := *f.Conditional
	if v, ok := r.Value(cond.DependsOn); ok && cond.Fires(v) {
		return true
	}
	for _, a := range r.History {
		if a.QuestionID == cond.DependsOn && cond.Fires(a.Value) {
			return true
		}
	}
	return false
}

// Len is the number of questions currently in the graph.
func (g Graph) Len() int {
	return len(g.Nodes)
}

// Seq yields the questions in order. It may be ranged over any number of times.
func (g Graph) Seq() iter.Seq[assess.Question] {
	return func(yield func(assess.Question) bool) {
		for _, n := range g.Nodes {
			if !yield(n.Question) {
				return
			}
		}
	}
}

// IDs returns the question ids in graph order.
func (g Graph) IDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for q := range g.Seq() {
		ids = append(ids, q.ID)
	}
	return ids
}

// Index returns the position of a question, or -1.
func (g Graph) Index(questionID string) int {
	for i, n := range g.Nodes {
		if n.Question.ID == questionID {
			return i
		}
	}
	return -1
}

// FollowUpCount counts realized follow-ups.
func (g Graph) FollowUpCount() int {
	n := 0
	for _, node := range g.Nodes {
		if node.FollowUp() {
			n++
		}
	}
	return n
}
