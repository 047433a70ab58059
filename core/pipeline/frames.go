package pipeline

import "github.com/mlehmk/fabula/model"

// AssembleFrames creates one event frame per verb token across all
// sentences, in sentence then token order. nextID is the first free event
// number; the updated counter is returned alongside the frames. Each
// sentence gets the ids of its events written back in creation order.
func AssembleFrames(sentences []*model.Sentence, nextID int) ([]*model.Event, int) {
	events := make([]*model.Event, 0)

	for _, sentence := range sentences {
		sentence.EventIDs = sentence.EventIDs[:0]
		for _, token := range sentence.Tokens {
			if token.POS != "VERB" || token.IsPunct {
				continue
			}
			event := model.NewEvent(model.EventIDFor(nextID), sentence, token)
			nextID++
			events = append(events, event)
			sentence.EventIDs = append(sentence.EventIDs, event.EventID)
		}
	}

	return events, nextID
}
