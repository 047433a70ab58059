package model

// Token is a single annotated token within a sentence.
// Head is the index of the syntactic head token within the sentence
// (a token is the root when it is its own head). Tokens are produced by
// the external annotation service and are never mutated.
type Token struct {
	Text    string `json:"text"`
	Lemma   string `json:"lemma"`
	POS     string `json:"pos"`
	Dep     string `json:"dep"`
	Head    int    `json:"head"`
	Index   int    `json:"index"`
	IsPunct bool   `json:"is_punct,omitempty"`
}

// EntitySpan is a named-entity mention with character offsets into the
// sentence text.
type EntitySpan struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Sentence is one annotated sentence of the source narrative.
// It is immutable once produced by the annotation service, except for
// EventIDs which the frame assembler writes back after extraction.
type Sentence struct {
	SentenceID string       `json:"sentence_id"`
	ChapterID  string       `json:"chapter_id"`
	Text       string       `json:"text"`
	Tokens     []Token      `json:"tokens"`
	Entities   []EntitySpan `json:"ner"`
	EventIDs   []string     `json:"event_ids,omitempty"`
}
