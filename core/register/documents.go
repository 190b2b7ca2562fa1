package register

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// UploadDocument sends up for the register at parentIndex and lists the stored document under it.
// Failures are reported on DocumentUploadError.
func (s *Store) UploadDocument(ctx context.Context, parentIndex int, up DocumentUpload) (Document, error) {
	if len(up.Content) == 0 {
		return Document{}, s.fail(s.docErr, "upload_document", "", ErrEmptyUpload)
	}

	s.mu.Lock()
	p, key, err := s.beginSave(parentIndex)
	if err != nil {
		s.mu.Unlock()
		return Document{}, s.fail(s.docErr, "upload_document", keyString(p, key), err)
	}
	p.busy = true
	parentID := p.record.ID.Int
	s.mu.Unlock()

	doc, err := s.client.UploadDocument(ctx, parentID, up)

	s.mu.Lock()
	p.busy = false
	if err != nil {
		s.mu.Unlock()
		return Document{}, s.fail(s.docErr, "upload_document", key.String(), errors.Wrap(err, "uploading document"))
	}
	if s.indexOf(p) < 0 {
		s.mu.Unlock()
		s.logger.Info(fmt.Sprintf("document %d uploaded for a discarded annual register", doc.ID))
		return doc, nil
	}
	s.documents[key] = append(s.documents[key], doc)
	idx := len(s.documents[key]) - 1
	s.mu.Unlock()

	s.publish(event{TopicDocumentUploaded, ChildEvent{Key: key, Kind: KindDocument, Index: idx, ID: doc.ID}})
	return doc, nil
}

// DeleteDocument deletes the document at docIndex of the register at parentIndex.
func (s *Store) DeleteDocument(ctx context.Context, parentIndex, docIndex int) error {
	s.mu.Lock()
	p, err := s.parentAt(parentIndex)
	if err != nil {
		s.mu.Unlock()
		return s.fail(s.docErr, "delete_document", "", err)
	}
	key := s.keyAt(parentIndex)
	if p.busy {
		s.mu.Unlock()
		return s.fail(s.docErr, "delete_document", key.String(), ErrRequestInFlight)
	}
	docs := s.documents[key]
	if docIndex < 0 || docIndex >= len(docs) {
		s.mu.Unlock()
		return s.fail(s.docErr, "delete_document", key.String(), errors.Wrapf(ErrIndexOutOfRange, "document %d", docIndex))
	}
	id := docs[docIndex].ID
	p.busy = true
	s.mu.Unlock()

	err = s.client.DeleteDocument(ctx, id)

	s.mu.Lock()
	p.busy = false
	if err != nil {
		s.mu.Unlock()
		return s.fail(s.docErr, "delete_document", key.String(), errors.Wrapf(err, "deleting document %d", id))
	}
	if s.indexOf(p) >= 0 {
		docs = s.documents[key]
		for i := range docs {
			if docs[i].ID == id {
				s.documents[key] = append(docs[:i:i], docs[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()

	s.publish(event{TopicDocumentDeleted, ChildEvent{Key: key, Kind: KindDocument, Index: docIndex, ID: id}})
	return nil
}

// Documents returns the documents uploaded for the register at parentIndex.
func (s *Store) Documents(parentIndex int) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.parentAt(parentIndex); err != nil {
		return nil, err
	}
	docs := s.documents[s.keyAt(parentIndex)]
	out := make([]Document, len(docs))
	copy(out, docs)
	return out, nil
}

// DocumentStatus compares the documents uploaded for the register at parentIndex with the
// ones required by the journeys it is registered to.
func (s *Store) DocumentStatus(ctx context.Context, parentIndex int) (DocumentCompleteness, error) {
	s.mu.Lock()
	p, err := s.parentAt(parentIndex)
	if err != nil {
		s.mu.Unlock()
		return DocumentCompleteness{}, err
	}
	key := s.keyAt(parentIndex)
	yearID := p.record.AcademicYearID

	var journeyIDs []int
	seen := make(map[int]bool)
	for _, rs := range s.registrations.snapshot(key) {
		if rs.JourneyID != 0 && !seen[rs.JourneyID] {
			seen[rs.JourneyID] = true
			journeyIDs = append(journeyIDs, rs.JourneyID)
		}
	}
	uploaded := make(map[int]bool)
	for _, doc := range s.documents[key] {
		uploaded[doc.RequiredDocumentID] = true
	}
	s.mu.Unlock()

	status := DocumentCompleteness{Provided: []RequiredDocument{}, Missing: []RequiredDocument{}}
	if len(journeyIDs) == 0 {
		status.Complete = true
		return status, nil
	}

	required, err := s.client.RequiredDocuments(ctx, RequiredDocumentQuery{AcademicYearID: yearID, JourneyIDs: journeyIDs})
	if err != nil {
		return DocumentCompleteness{}, errors.Wrap(err, "listing required documents")
	}
	for _, rd := range required {
		if uploaded[rd.ID] {
			status.Provided = append(status.Provided, rd)
		} else {
			status.Missing = append(status.Missing, rd)
		}
	}
	status.Complete = len(status.Missing) == 0
	return status, nil
}
