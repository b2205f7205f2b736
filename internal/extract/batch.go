package extract

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/Dan9191/loan-assessment/internal/models"
	"github.com/sirupsen/logrus"
)

// Batch is the merged extraction of an ordered document set for one client
type Batch struct {
	Profile      models.ClientProfile
	ProfileFrom  string // document that supplied the profile
	Transactions []models.TransactionRecord
	Statements   []models.StatementSummary
	Documents    []DocumentResult
	// ConflictingClientIDs lists client ids of later profiles that disagree with Profile
	ConflictingClientIDs []string
}

// ExtractBatch runs Extract over docs in order. The first profile with a client id wins;
// later profile documents only contribute transactions. Transactions without a client id
// are tagged with the winning profile's id once the loop ends.
func (e *Extractor) ExtractBatch(docs []models.Document) (Batch, error) {
	var (
		batch   Batch
		found   bool
		pending []models.TransactionRecord
	)
	for _, doc := range docs {
		res := e.Extract(doc)
		batch.Documents = append(batch.Documents, res)

		if p := res.Profile; p != nil {
			switch {
			case p.ClientID == "":
				e.log.WithField("document", doc.Name).Warn("Profile without client id ignored")
			case !found:
				batch.Profile = *p
				batch.ProfileFrom = doc.Name
				found = true
			case p.ClientID != batch.Profile.ClientID:
				if !slices.Contains(batch.ConflictingClientIDs, p.ClientID) {
					batch.ConflictingClientIDs = append(batch.ConflictingClientIDs, p.ClientID)
				}
			default:
				e.log.WithField("document", doc.Name).Debug("Repeated profile ignored")
			}
		}
		pending = append(pending, res.Transactions...)
		if res.Statement != nil {
			batch.Statements = append(batch.Statements, *res.Statement)
		}
	}

	if !found {
		batch.Transactions = pending
		return batch, ErrNoProfileExtracted
	}
	if len(batch.ConflictingClientIDs) > 0 {
		batch.Transactions = pending
		return batch, fmt.Errorf("%w: %s, %s", ErrAmbiguousClientBatch,
			batch.Profile.ClientID, strings.Join(batch.ConflictingClientIDs, ", "))
	}

	batch.Transactions = make([]models.TransactionRecord, len(pending))
	for i, tx := range pending {
		if !tx.Resolved() {
			tx.ClientID = batch.Profile.ClientID
		}
		batch.Transactions[i] = tx
	}
	for i, s := range batch.Statements {
		if s.ClientID == "" {
			batch.Statements[i].ClientID = batch.Profile.ClientID
		}
	}
	sort.SliceStable(batch.Transactions, func(i, j int) bool {
		return batch.Transactions[i].Date.Before(batch.Transactions[j].Date)
	})

	e.log.WithFields(logrus.Fields{
		"client_id":    batch.Profile.ClientID,
		"documents":    len(docs),
		"transactions": len(batch.Transactions),
	}).Info("Batch extracted")
	return batch, nil
}

// Partition is the subset of a batch that belongs to one client
type Partition struct {
	ClientID  string
	Documents []models.Document
}

// PartitionByClient groups documents by the client id in their header, in first-seen order.
// Documents without an id join the only partition when there is exactly one; otherwise they
// are returned as unassigned.
func PartitionByClient(docs []models.Document) ([]Partition, []models.Document) {
	var (
		order      []string
		byID       = make(map[string][]models.Document)
		unassigned []models.Document
	)
	for _, doc := range docs {
		id, ok := ClientID(doc.Text)
		if !ok {
			unassigned = append(unassigned, doc)
			continue
		}
		if _, seen := byID[id]; !seen {
			order = append(order, id)
		}
		byID[id] = append(byID[id], doc)
	}

	if len(order) == 1 && len(unassigned) > 0 {
		return []Partition{{ClientID: order[0], Documents: docs}}, nil
	}
	parts := make([]Partition, 0, len(order))
	for _, id := range order {
		parts = append(parts, Partition{ClientID: id, Documents: byID[id]})
	}
	return parts, unassigned
}
