package pipeline

import (
	"strings"

	"github.com/mlehmk/fabula/model"
)

var (
	agentDeps       = map[string]bool{"nsubj": true, "nsubjpass": true, "csubj": true}
	patientDeps     = map[string]bool{"dobj": true, "pobj": true, "attr": true}
	beneficiaryDeps = map[string]bool{"dative": true, "iobj": true}

	instrumentPreps = map[string]bool{"with": true, "using": true, "by": true}
	locationPreps   = map[string]bool{
		"in": true, "on": true, "at": true, "near": true, "by": true,
		"under": true, "over": true, "inside": true, "outside": true,
	}
	timePreps = map[string]bool{
		"at": true, "on": true, "in": true, "during": true,
		"before": true, "after": true, "since": true, "until": true,
	}

	temporalAdverbs = []string{"yesterday", "today", "tomorrow", "now", "then", "later", "earlier"}

	// roleEntityLabels are the labels kept when re-discovering entities in
	// filled role strings.
	roleEntityLabels = map[string]bool{
		"PERSON": true, "ORG": true, "GPE": true,
		"LOC": true, "DATE": true, "TIME": true,
	}
)

// roleRule maps one dependent of a predicate to a role slot. Rules are
// evaluated in order per dependent; the first match wins.
type roleRule struct {
	Kind    model.RoleKind
	Extract func(child *DepNode) (string, bool)
}

// roleRules is the static rule table of the gap filler. The instrument rule
// precedes the location rule so that "by" binds as instrument first.
var roleRules = []roleRule{
	{model.RoleAgent, func(child *DepNode) (string, bool) {
		if agentDeps[child.Token.Dep] {
			return SubtreeText(child), true
		}
		return "", false
	}},
	{model.RolePatient, func(child *DepNode) (string, bool) {
		if patientDeps[child.Token.Dep] {
			return SubtreeText(child), true
		}
		return "", false
	}},
	{model.RoleBeneficiary, func(child *DepNode) (string, bool) {
		if beneficiaryDeps[child.Token.Dep] {
			return SubtreeText(child), true
		}
		return "", false
	}},
	{model.RoleInstrument, func(child *DepNode) (string, bool) {
		if child.Token.Dep == "prep" && instrumentPreps[strings.ToLower(child.Token.Text)] {
			return prepObjectText(child)
		}
		return "", false
	}},
	{model.RoleLocation, func(child *DepNode) (string, bool) {
		if child.Token.Dep == "prep" && locationPreps[strings.ToLower(child.Token.Text)] {
			return prepObjectText(child)
		}
		return "", false
	}},
	{model.RoleTime, func(child *DepNode) (string, bool) {
		if child.Token.Dep == "prep" && timePreps[strings.ToLower(child.Token.Text)] {
			return prepObjectText(child)
		}
		return "", false
	}},
}

// prepObjectText returns the subtree text of the preposition's object,
// or no match if the preposition has no object.
func prepObjectText(prep *DepNode) (string, bool) {
	for _, child := range prep.Children {
		if child.Token.Dep == "pobj" {
			return SubtreeText(child), true
		}
	}
	return "", false
}

func isTemporalAdverb(text string) bool {
	lower := strings.ToLower(text)
	for _, adverb := range temporalAdverbs {
		if strings.Contains(lower, adverb) {
			return true
		}
	}
	return false
}

// FillRoles fills the role slots of a sentence's events from the dependency
// tree. The i-th event of the sentence corresponds to the i-th verb token.
// Dependents are visited in token order and each role slot keeps its first
// value, so repeated calls never overwrite filled roles. Missing dependents
// leave their slots nil.
//
// When an extractor is given, every filled role string is additionally run
// through it and re-discovered person, organization, place, date and time
// entities are merged into the event's entity list. Extractor failures are
// ignored; re-discovery is best effort.
func FillRoles(sentence *model.Sentence, tree *DependencyTree, events []*model.Event, extractor EntityExtractFunc) {
	verbs := make([]*DepNode, 0, len(events))
	for _, node := range tree.nodes {
		if node.Token.POS == "VERB" && !node.Token.IsPunct {
			verbs = append(verbs, node)
		}
	}

	for i, event := range events {
		if i >= len(verbs) {
			break
		}
		predicate := verbs[i]

		for _, child := range predicate.Children {
			for _, rule := range roleRules {
				value, ok := rule.Extract(child)
				if !ok {
					continue
				}
				if event.SetRole(rule.Kind, value) {
					break
				}
			}
		}

		// Temporal adverbials can attach anywhere in the sentence, not just
		// under the predicate.
		if event.Role(model.RoleTime) == nil {
			for _, node := range tree.nodes {
				token := node.Token
				if token.Dep == "advmod" && token.POS == "ADV" && isTemporalAdverb(token.Text) {
					event.SetRole(model.RoleTime, token.Text)
					break
				}
			}
		}

		if extractor != nil {
			rediscoverEntities(event, extractor)
		}
	}
}

// rediscoverEntities runs the extractor over each filled role string and
// merges the discovered entities into the event.
func rediscoverEntities(event *model.Event, extractor EntityExtractFunc) {
	kinds := []model.RoleKind{
		model.RoleAgent, model.RolePatient, model.RoleInstrument,
		model.RoleBeneficiary, model.RoleLocation, model.RoleTime,
	}
	for _, kind := range kinds {
		value := event.Role(kind)
		if value == nil || *value == "" {
			continue
		}
		spans, err := extractor(*value)
		if err != nil {
			continue
		}
		for _, span := range spans {
			if roleEntityLabels[span.Label] {
				event.MergeEntity(span)
			}
		}
	}
}
