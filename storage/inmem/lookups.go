package inmemdb

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/registrar/core/register"
)

var errAlreadyRegistered = errors.New("this student already has an annual register for this academic year")

func documentURL(doc register.Document) string {
	return fmt.Sprintf("/media/documents/%d/%s", doc.ID, doc.Name)
}

func (c *client) JourneysByMention(_ context.Context, mentionID int) ([]register.Journey, error) {
	c.db.RLock()
	defer c.db.RUnlock()

	journeys := make([]register.Journey, 0)
	for _, j := range c.db.journeys {
		if j.MentionID == mentionID {
			journeys = append(journeys, j)
		}
	}
	return journeys, nil
}

func (c *client) EnrollmentFee(_ context.Context, q register.FeeQuery) (register.EnrollmentFee, error) {
	c.db.RLock()
	defer c.db.RUnlock()

	for _, fee := range c.db.fees {
		if fee.AcademicYearID == q.AcademicYearID && fee.MentionID == q.MentionID && (q.Level == "" || fee.Level == q.Level) {
			return fee, nil
		}
	}
	return register.EnrollmentFee{}, register.ErrNotFound
}

func (c *client) RequiredDocuments(_ context.Context, q register.RequiredDocumentQuery) ([]register.RequiredDocument, error) {
	c.db.RLock()
	defer c.db.RUnlock()

	journeys := make(map[int]bool, len(q.JourneyIDs))
	for _, id := range q.JourneyIDs {
		journeys[id] = true
	}
	docs := make([]register.RequiredDocument, 0)
	for _, rd := range c.db.required {
		if rd.AcademicYearID == q.AcademicYearID && journeys[rd.JourneyID] {
			docs = append(docs, rd)
		}
	}
	return docs, nil
}
