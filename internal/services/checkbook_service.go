package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"enclave-sdk/internal/clients"
	"enclave-sdk/internal/dto"
	"enclave-sdk/internal/interfaces"
	"enclave-sdk/internal/models"
	"enclave-sdk/internal/store"
)

// CheckbookService loads checkbooks and allocations into the store.
type CheckbookService struct {
	api   interfaces.CheckbookAPI
	store *store.Store
	log   logrus.FieldLogger
}

// NewCheckbookService creates the service. log may be nil.
func NewCheckbookService(api interfaces.CheckbookAPI, st *store.Store, log logrus.FieldLogger) *CheckbookService {
	return &CheckbookService{api: api, store: st, log: defaultLogger(log, "checkbook")}
}

// ListCheckbooks fetches one page of checkbooks with their allocations.
func (s *CheckbookService) ListCheckbooks(ctx context.Context, p clients.ListCheckbooksParams) (*clients.CheckbooksPage, error) {
	page, err := s.api.ListCheckbooks(ctx, p)
	if err != nil {
		return nil, err
	}
	s.apply(page.Checkbooks, page.Allocations)
	return page, nil
}

// SyncCheckbooks walks every page of checkbooks into the store and returns
// how many were loaded.
func (s *CheckbookService) SyncCheckbooks(ctx context.Context, pageSize int) (int, error) {
	loaded := 0
	for page := 1; ; page++ {
		res, err := s.ListCheckbooks(ctx, clients.ListCheckbooksParams{Page: page, Size: pageSize})
		if err != nil {
			return loaded, err
		}
		loaded += len(res.Checkbooks)
		if len(res.Checkbooks) == 0 || page >= res.Page.TotalPages {
			break
		}
	}
	s.log.WithField("checkbooks", loaded).Info("[Checkbook] synced")
	return loaded, nil
}

// GetCheckbook fetches one checkbook and its allocations.
func (s *CheckbookService) GetCheckbook(ctx context.Context, id string) (models.Checkbook, []models.Allocation, error) {
	cb, allocs, err := s.api.GetCheckbook(ctx, id)
	if err != nil {
		return models.Checkbook{}, nil, err
	}
	s.apply([]models.Checkbook{cb}, allocs)
	return cb, allocs, nil
}

// DeleteCheckbook deletes a checkbook on the backend, then locally.
func (s *CheckbookService) DeleteCheckbook(ctx context.Context, id string) error {
	if err := s.api.DeleteCheckbook(ctx, id); err != nil {
		return err
	}
	s.store.Apply(store.DeleteCheckbook(id))
	s.log.WithField("checkbook_id", id).Info("[Checkbook] deleted")
	return nil
}

// ListAllocations fetches one page of allocations. The partial checkbooks
// nested in the items are not stored.
func (s *CheckbookService) ListAllocations(ctx context.Context, p clients.ListAllocationsParams) (*dto.AllocationsPage, error) {
	page, err := s.api.ListAllocations(ctx, p)
	if err != nil {
		return nil, err
	}
	s.apply(nil, page.Allocations)
	return page, nil
}

// GetAllocation fetches one allocation.
func (s *CheckbookService) GetAllocation(ctx context.Context, id string) (models.Allocation, error) {
	a, err := s.api.GetAllocation(ctx, id)
	if err != nil {
		return models.Allocation{}, err
	}
	s.apply(nil, []models.Allocation{a})
	return a, nil
}

func (s *CheckbookService) apply(cbs []models.Checkbook, allocs []models.Allocation) {
	if len(cbs)+len(allocs) == 0 {
		return
	}
	mutations := make([]store.Mutation, 0, len(cbs)+len(allocs))
	for _, cb := range cbs {
		mutations = append(mutations, store.UpsertCheckbook(cb))
	}
	for _, a := range allocs {
		mutations = append(mutations, store.UpsertAllocation(a))
	}
	s.store.Apply(mutations...)
}
