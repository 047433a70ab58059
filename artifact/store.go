package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/mlehmk/fabula/helper"
	"github.com/mlehmk/fabula/model"
)

// SentencesDocument is the preprocessing artifact: all annotated sentences.
type SentencesDocument struct {
	Sentences      []*model.Sentence `json:"sentences"`
	TotalSentences int               `json:"total_sentences"`
}

// EventsDocument is the event frame artifact.
type EventsDocument struct {
	Events      []*model.Event `json:"events"`
	TotalEvents int            `json:"total_events"`
}

// TimestampsDocument is the temporal normalization artifact: the memo of
// all resolved expressions against the reference date.
type TimestampsDocument struct {
	ReferenceDate    string                      `json:"reference_date"`
	NormalizedTimes  map[string]model.Resolution `json:"normalized_times"`
	TotalExpressions int                         `json:"total_expressions"`
}

// EmbeddingsDocument is the embedding artifact, with event ids and vectors
// kept in matching order.
type EmbeddingsDocument struct {
	EventIDs     []string    `json:"event_ids"`
	Embeddings   [][]float32 `json:"embeddings"`
	EmbeddingDim int         `json:"embedding_dim"`
	ModelName    string      `json:"model_name"`
}

// SemanticMemoryDocument is the semantic memory artifact.
type SemanticMemoryDocument struct {
	Model          string                      `json:"model"`
	EmbeddingDim   int                         `json:"embedding_dim"`
	SemanticMemory []model.SemanticMemoryEntry `json:"semantic_memory"`
}

// Store reads and writes the JSON artifacts of a pipeline run below a base
// directory. Annotated sentences live under preprocessed/, every later
// stage under memory/.
type Store struct {
	Dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) sentencesPath() string {
	return filepath.Join(s.Dir, "preprocessed", "sentences.json")
}

func (s *Store) memoryPath(name string) string {
	return filepath.Join(s.Dir, "memory", name)
}

// EventsPath returns the path of the events artifact.
func (s *Store) EventsPath() string { return s.memoryPath("events.json") }

// GraphPath returns the path of the memory graph artifact.
func (s *Store) GraphPath() string { return s.memoryPath("memory_graph.json") }

func (s *Store) write(path string, document interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return helper.NewError("create artifact directory", err)
	}
	data, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return helper.NewError("marshal artifact", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return helper.NewError("write artifact", err)
	}
	return nil
}

func (s *Store) read(path string, document interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return helper.NewError("read artifact", err)
	}
	if err := json.Unmarshal(data, document); err != nil {
		return helper.NewError("parse artifact", err)
	}
	return nil
}

// WriteSentences writes the annotated sentences artifact.
func (s *Store) WriteSentences(sentences []*model.Sentence) error {
	return s.write(s.sentencesPath(), SentencesDocument{
		Sentences:      sentences,
		TotalSentences: len(sentences),
	})
}

// ReadSentences reads the annotated sentences artifact. A missing or
// unparsable file is an error; the pipeline cannot start without it.
func (s *Store) ReadSentences() ([]*model.Sentence, error) {
	var document SentencesDocument
	if err := s.read(s.sentencesPath(), &document); err != nil {
		return nil, err
	}
	return document.Sentences, nil
}

// WriteEvents writes the event frames artifact.
func (s *Store) WriteEvents(events []*model.Event) error {
	return s.write(s.EventsPath(), EventsDocument{
		Events:      events,
		TotalEvents: len(events),
	})
}

// ReadEvents reads the event frames artifact.
func (s *Store) ReadEvents() ([]*model.Event, error) {
	var document EventsDocument
	if err := s.read(s.EventsPath(), &document); err != nil {
		return nil, err
	}
	return document.Events, nil
}

// WriteTimestamps writes the temporal resolution memo.
func (s *Store) WriteTimestamps(referenceDate string, resolutions map[string]model.Resolution) error {
	return s.write(s.memoryPath("timestamps.json"), TimestampsDocument{
		ReferenceDate:    referenceDate,
		NormalizedTimes:  resolutions,
		TotalExpressions: len(resolutions),
	})
}

// ReadTimestamps reads the temporal resolution memo.
func (s *Store) ReadTimestamps() (*TimestampsDocument, error) {
	var document TimestampsDocument
	if err := s.read(s.memoryPath("timestamps.json"), &document); err != nil {
		return nil, err
	}
	return &document, nil
}

// WriteEmbeddings writes the embeddings artifact in event order.
func (s *Store) WriteEmbeddings(events []*model.Event, embeddings map[string][]float32, modelName string) error {
	document := EmbeddingsDocument{ModelName: modelName}
	for _, event := range events {
		embedding, ok := embeddings[event.EventID]
		if !ok {
			continue
		}
		document.EventIDs = append(document.EventIDs, event.EventID)
		document.Embeddings = append(document.Embeddings, embedding)
		document.EmbeddingDim = len(embedding)
	}
	return s.write(s.memoryPath("event_embeddings.json"), document)
}

// ReadEmbeddings reads the embeddings artifact.
func (s *Store) ReadEmbeddings() (*EmbeddingsDocument, error) {
	var document EmbeddingsDocument
	if err := s.read(s.memoryPath("event_embeddings.json"), &document); err != nil {
		return nil, err
	}
	return &document, nil
}

// WriteSemanticMemory writes the semantic memory artifact.
func (s *Store) WriteSemanticMemory(entries []model.SemanticMemoryEntry, modelName string, dim int) error {
	return s.write(s.memoryPath("memory_semantic.json"), SemanticMemoryDocument{
		Model:          modelName,
		EmbeddingDim:   dim,
		SemanticMemory: entries,
	})
}

// WriteGraph writes the unified memory graph artifact.
func (s *Store) WriteGraph(memoryGraph *model.MemoryGraph) error {
	return s.write(s.GraphPath(), memoryGraph)
}

// ReadGraph reads the unified memory graph artifact.
func (s *Store) ReadGraph() (*model.MemoryGraph, error) {
	var memoryGraph model.MemoryGraph
	if err := s.read(s.GraphPath(), &memoryGraph); err != nil {
		return nil, err
	}
	return &memoryGraph, nil
}
