package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibefix-labs/vibefix-backend/internal/bids/domain"
	projdomain "github.com/vibefix-labs/vibefix-backend/internal/projects/domain"
)

type fakeStore struct {
	created  *domain.PlaceBidRequest
	accepted bool
}

func (f *fakeStore) Create(ctx context.Context, req domain.PlaceBidRequest) (*domain.Bid, error) {
	f.created = &req
	return &domain.Bid{ID: "b1", ProjectID: req.ProjectID, BidderID: req.BidderID, Status: domain.StatusPending}, nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (*domain.Bid, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeStore) ListByProject(ctx context.Context, projectID string) ([]domain.Bid, error) {
	return nil, nil
}

func (f *fakeStore) Withdraw(ctx context.Context, bidID, bidderID string) (*domain.Bid, error) {
	return &domain.Bid{ID: bidID, Status: domain.StatusWithdrawn}, nil
}

func (f *fakeStore) Accept(ctx context.Context, projectID, bidID, callerID string) (*domain.AcceptResult, error) {
	f.accepted = true
	return &domain.AcceptResult{
		ProjectID:     projectID,
		ProjectStatus: string(projdomain.StatusInProgress),
		AcceptedBidID: bidID,
		RejectedBids:  2,
	}, nil
}

type fakeProjects struct {
	project *projdomain.Project
}

func (f *fakeProjects) Get(ctx context.Context, id string) (*projdomain.Project, error) {
	if f.project == nil {
		return nil, projdomain.ErrNotFound
	}
	return f.project, nil
}

func openProject() *projdomain.Project {
	return &projdomain.Project{ID: "p1", OwnerID: "owner-1", Status: projdomain.StatusOpen}
}

func placeReq() domain.PlaceBidRequest {
	return domain.PlaceBidRequest{ProjectID: "p1", BidderID: "bidder-1", AmountLamports: 1_000_000}
}

func TestPlaceCreatesPendingBid(t *testing.T) {
	store := &fakeStore{}
	svc := New(store, &fakeProjects{project: openProject()})

	bid, err := svc.Place(context.Background(), placeReq())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, bid.Status)
	require.NotNil(t, store.created)
}

func TestPlaceRejectsNonPositiveAmount(t *testing.T) {
	svc := New(&fakeStore{}, &fakeProjects{project: openProject()})

	req := placeReq()
	req.AmountLamports = 0
	_, err := svc.Place(context.Background(), req)
	assert.Error(t, err)
}

func TestPlaceRejectsClosedProject(t *testing.T) {
	p := openProject()
	p.Status = projdomain.StatusInProgress
	svc := New(&fakeStore{}, &fakeProjects{project: p})

	_, err := svc.Place(context.Background(), placeReq())
	assert.ErrorIs(t, err, projdomain.ErrInvalidTransition)
}

func TestPlaceRejectsOwnProject(t *testing.T) {
	svc := New(&fakeStore{}, &fakeProjects{project: openProject()})

	req := placeReq()
	req.BidderID = "owner-1"
	_, err := svc.Place(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrOwnProject)
}

func TestAcceptRejectsNonOwner(t *testing.T) {
	store := &fakeStore{}
	svc := New(store, &fakeProjects{project: openProject()})

	_, err := svc.Accept(context.Background(), "p1", "b1", "someone-else")
	assert.ErrorIs(t, err, projdomain.ErrNotOwner)
	assert.False(t, store.accepted)
}

func TestAcceptRejectsNonOpenProject(t *testing.T) {
	p := openProject()
	p.Status = projdomain.StatusCompleted
	store := &fakeStore{}
	svc := New(store, &fakeProjects{project: p})

	_, err := svc.Accept(context.Background(), "p1", "b1", "owner-1")
	assert.ErrorIs(t, err, projdomain.ErrInvalidTransition)
	assert.False(t, store.accepted)
}

func TestAcceptDelegatesToStore(t *testing.T) {
	store := &fakeStore{}
	svc := New(store, &fakeProjects{project: openProject()})

	res, err := svc.Accept(context.Background(), "p1", "b1", "owner-1")
	require.NoError(t, err)
	assert.True(t, store.accepted)
	assert.Equal(t, "b1", res.AcceptedBidID)
	assert.Equal(t, string(projdomain.StatusInProgress), res.ProjectStatus)
}
