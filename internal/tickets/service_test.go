package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oris-services/servicedesk/internal/platform/httpx"
	"github.com/oris-services/servicedesk/internal/shared"
	_ "github.com/oris-services/servicedesk/testing"
)

var (
	admin      = shared.Actor{ID: 1, Name: "Admin", Role: shared.RoleAdmin}
	technician = shared.Actor{ID: 2, Name: "Tech", Role: shared.RoleTechnician}
	otherTech  = shared.Actor{ID: 3, Name: "Otro Tech", Role: shared.RoleTechnician}
)

type countingCache struct{ bumps int }

func (c *countingCache) Bump(ctx context.Context) error {
	c.bumps++
	return nil
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
}

func newService(repo *memoryRepo, opts ...Option) (*Service, *memoryStore) {
	store := &memoryStore{}
	opts = append([]Option{WithClock(fixedClock)}, opts...)
	return NewService(repo, store, testLogger(), opts...), store
}

func personInput() SubmitInput {
	return SubmitInput{
		ClientType:  ClientPerson,
		ClientName:  "  Ana Pérez ",
		Email:       "Ana@Example.com",
		Phone:       "809-555-0101",
		Address:     "Calle 1, Santo Domingo",
		CompanyName: "ignored",
		OfferingID:  1,
		Description: "Instalar 4 cámaras",
	}
}

func submitted(t *testing.T, svc *Service) Ticket {
	t.Helper()
	ticket, err := svc.Submit(context.Background(), personInput())
	require.NoError(t, err)
	return ticket
}

func assigned(t *testing.T, svc *Service) Ticket {
	t.Helper()
	ticket := submitted(t, svc)
	ticket, err := svc.Assign(context.Background(), admin, ticket.ID, AssignInput{
		TechnicianID: technician.ID, Date: "2026-03-20", Time: "10:00", TaskType: TaskInstallation,
	})
	require.NoError(t, err)
	return ticket
}

func TestSubmitGeneratesCaseNumberAndHistory(t *testing.T) {
	repo := newMemoryRepo()
	cache := &countingCache{}
	svc, _ := newService(repo, WithInvalidator(cache))

	ticket := submitted(t, svc)
	require.Regexp(t, `^CASE-\d{6}$`, ticket.CaseNumber)
	require.Equal(t, RequestSubmitted, ticket.RequestStatus)
	require.Empty(t, ticket.ProgressStatus)
	require.Equal(t, "Ana Pérez", ticket.ClientName)
	require.Equal(t, "ana@example.com", ticket.Email)
	require.Empty(t, ticket.CompanyName)
	require.Equal(t, 1, cache.bumps)

	history, err := svc.History(context.Background(), admin, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, ActionSubmitted, history[0].Action)
	require.Equal(t, "client", history[0].ActorRole)
}

func TestSubmitRetriesCaseNumberCollisions(t *testing.T) {
	repo := newMemoryRepo()
	numbers := []string{"CASE-000001", "CASE-000001", "CASE-000001", "CASE-000002"}
	gen := func() (string, error) {
		n := numbers[0]
		numbers = numbers[1:]
		return n, nil
	}
	svc, _ := newService(repo, WithCaseNumbers(gen))

	first := submitted(t, svc)
	second := submitted(t, svc)
	require.Equal(t, "CASE-000001", first.CaseNumber)
	require.Equal(t, "CASE-000002", second.CaseNumber)
}

func TestSubmitGivesUpAfterRepeatedCollisions(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newService(repo, WithCaseNumbers(func() (string, error) { return "CASE-123456", nil }))
	submitted(t, svc)

	_, err := svc.Submit(context.Background(), personInput())
	require.Error(t, err)
	require.Contains(t, err.Error(), "no free case number")
}

func TestSubmitRejectsUnknownOffering(t *testing.T) {
	svc, _ := newService(newMemoryRepo())
	input := personInput()
	input.OfferingID = 99

	_, err := svc.Submit(context.Background(), input)
	var fields httpx.FieldErrors
	require.ErrorAs(t, err, &fields)
	require.Contains(t, fields, "offering_id")
}

func TestTrackHidesContactData(t *testing.T) {
	svc, _ := newService(newMemoryRepo())
	ticket := submitted(t, svc)

	tracking, err := svc.Track(context.Background(), strings.ToLower(ticket.CaseNumber))
	require.NoError(t, err)
	require.Equal(t, ticket.CaseNumber, tracking.CaseNumber)
	require.Equal(t, "Instalación de cámaras", tracking.ServiceName)

	_, err = svc.Track(context.Background(), "CASE-999999")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Track(context.Background(), " ")
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestAssignSchedulesVisit(t *testing.T) {
	svc, _ := newService(newMemoryRepo())
	ticket := assigned(t, svc)

	require.Equal(t, RequestScheduled, ticket.RequestStatus)
	require.Equal(t, ProgressInProgress, ticket.ProgressStatus)
	require.True(t, ticket.AssignedTo(technician.ID))
	require.Equal(t, "2026-03-20", ticket.ScheduledDate.Format("2006-01-02"))

	history, err := svc.History(context.Background(), technician, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, ActionTechnicianAssigned, history[len(history)-1].Action)
}

func TestAssignRejectsInactiveOrUnknownTechnician(t *testing.T) {
	svc, _ := newService(newMemoryRepo())
	ticket := submitted(t, svc)

	for _, techID := range []int64{4, 42} {
		_, err := svc.Assign(context.Background(), admin, ticket.ID, AssignInput{
			TechnicianID: techID, Date: "2026-03-20", Time: "10:00", TaskType: TaskSurvey,
		})
		require.ErrorIs(t, err, ErrInvalidTechnician, "technician %d", techID)
	}
}

func TestStatusRequestRequiresAssignment(t *testing.T) {
	svc, _ := newService(newMemoryRepo())
	ticket := assigned(t, svc)

	_, err := svc.RequestStatusChange(context.Background(), otherTech, ticket.ID, StatusChangeInput{Status: ProgressCompleted, Note: "listo"})
	require.ErrorIs(t, err, ErrNotAssigned)

	_, err = svc.RequestStatusChange(context.Background(), technician, ticket.ID, StatusChangeInput{Status: ProgressCompleted, Note: "  "})
	var fields httpx.FieldErrors
	require.ErrorAs(t, err, &fields)
}

func TestOnlyOnePendingRequestPerTicket(t *testing.T) {
	svc, _ := newService(newMemoryRepo())
	ticket := assigned(t, svc)

	_, err := svc.RequestStatusChange(context.Background(), technician, ticket.ID, StatusChangeInput{Status: ProgressAwaitingMaterials, Note: "falta cable"})
	require.NoError(t, err)
	_, err = svc.RequestStatusChange(context.Background(), technician, ticket.ID, StatusChangeInput{Status: ProgressCompleted, Note: "listo"})
	require.ErrorIs(t, err, ErrPendingRequest)
}

func TestApproveAppliesRequestedStatus(t *testing.T) {
	svc, _ := newService(newMemoryRepo())
	ticket := assigned(t, svc)
	req, err := svc.RequestStatusChange(context.Background(), technician, ticket.ID, StatusChangeInput{Status: ProgressCompleted, Note: "instalado"})
	require.NoError(t, err)

	resolved, err := svc.ResolveStatusRequest(context.Background(), admin, req.ID, ResolveInput{Approve: true, Note: "ok"})
	require.NoError(t, err)
	require.Equal(t, RequestApproved, resolved.State)
	require.Equal(t, admin.ID, *resolved.ResolvedBy)

	got, err := svc.Get(context.Background(), admin, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, ProgressCompleted, got.ProgressStatus)

	_, err = svc.ResolveStatusRequest(context.Background(), admin, req.ID, ResolveInput{Approve: false})
	require.ErrorIs(t, err, ErrAlreadyResolved)

	history, err := svc.History(context.Background(), admin, ticket.ID)
	require.NoError(t, err)
	actions := make([]string, 0, len(history))
	for _, h := range history {
		actions = append(actions, h.Action)
	}
	require.Equal(t, []string{ActionSubmitted, ActionTechnicianAssigned, ActionStatusRequested, ActionStatusApproved}, actions)
}

func TestRejectLeavesTicketStatus(t *testing.T) {
	svc, _ := newService(newMemoryRepo())
	ticket := assigned(t, svc)
	req, err := svc.RequestStatusChange(context.Background(), technician, ticket.ID, StatusChangeInput{Status: ProgressClientAbsent, Note: "nadie en casa"})
	require.NoError(t, err)

	resolved, err := svc.ResolveStatusRequest(context.Background(), admin, req.ID, ResolveInput{Approve: false, Note: "volver mañana"})
	require.NoError(t, err)
	require.Equal(t, RequestRejected, resolved.State)

	got, err := svc.Get(context.Background(), admin, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, ProgressInProgress, got.ProgressStatus)

	// A new request is allowed once the previous one is resolved.
	_, err = svc.RequestStatusChange(context.Background(), technician, ticket.ID, StatusChangeInput{Status: ProgressCompleted, Note: "listo"})
	require.NoError(t, err)
}

func TestCloseRefusesFurtherRequests(t *testing.T) {
	svc, _ := newService(newMemoryRepo())
	ticket := assigned(t, svc)
	req, err := svc.RequestStatusChange(context.Background(), technician, ticket.ID, StatusChangeInput{Status: ProgressCompleted, Note: "listo"})
	require.NoError(t, err)

	closed, err := svc.Close(context.Background(), admin, ticket.ID, CloseInput{Status: CloseFinished, Note: "cliente conforme"})
	require.NoError(t, err)
	require.True(t, closed.Closed())
	require.Equal(t, CloseFinished, closed.RequestStatus)

	reqs, err := svc.StatusRequests(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	require.Equal(t, req.ID, reqs[0].ID)
	require.Equal(t, RequestRejected, reqs[0].State)

	_, err = svc.RequestStatusChange(context.Background(), technician, ticket.ID, StatusChangeInput{Status: ProgressCompleted, Note: "otra vez"})
	require.ErrorIs(t, err, ErrClosed)
	_, err = svc.Close(context.Background(), admin, ticket.ID, CloseInput{Status: CloseCancelled})
	require.ErrorIs(t, err, ErrClosed)
	_, err = svc.Assign(context.Background(), admin, ticket.ID, AssignInput{TechnicianID: 3, Date: "2026-03-21", Time: "08:00", TaskType: TaskSurvey})
	require.ErrorIs(t, err, ErrClosed)
}

func TestAttachEvidenceStoresObject(t *testing.T) {
	svc, store := newService(newMemoryRepo())
	ticket := assigned(t, svc)

	ev, err := svc.AttachEvidence(context.Background(), technician, ticket.ID, EvidenceUpload{
		Filename: "../foto final.jpg",
		Size:     5,
		Body:     strings.NewReader("jpeg!"),
	})
	require.NoError(t, err)
	wantKey := fmt.Sprintf("ticket-%d/%d-foto_final.jpg", ticket.ID, fixedClock().Unix())
	require.Equal(t, wantKey, ev.ObjectKey)
	require.Equal(t, "https://files.test/"+wantKey, ev.URL)
	require.Equal(t, "image/jpeg", ev.ContentType)
	require.Equal(t, []byte("jpeg!"), store.objects[wantKey])

	got, err := svc.Get(context.Background(), admin, ticket.ID)
	require.NoError(t, err)
	require.Len(t, got.Evidence, 1)
}

func TestAttachEvidenceGuards(t *testing.T) {
	svc, store := newService(newMemoryRepo())
	ticket := assigned(t, svc)

	_, err := svc.AttachEvidence(context.Background(), otherTech, ticket.ID, EvidenceUpload{Filename: "a.png", Size: 1, Body: strings.NewReader("x")})
	require.ErrorIs(t, err, ErrNotAssigned)

	_, err = svc.AttachEvidence(context.Background(), technician, ticket.ID, EvidenceUpload{Filename: "a.png", Size: MaxEvidenceBytes + 1, Body: strings.NewReader("x")})
	require.ErrorIs(t, err, ErrEvidenceTooLarge)

	store.err = errors.New("bucket unavailable")
	_, err = svc.AttachEvidence(context.Background(), admin, ticket.ID, EvidenceUpload{Filename: "a.png", Size: 1, Body: strings.NewReader("x")})
	require.ErrorContains(t, err, "bucket unavailable")
}

func TestTechnicianCannotReadUnassignedTicket(t *testing.T) {
	svc, _ := newService(newMemoryRepo())
	ticket := assigned(t, svc)

	_, err := svc.Get(context.Background(), otherTech, ticket.ID)
	require.ErrorIs(t, err, ErrNotAssigned)
	_, err = svc.History(context.Background(), otherTech, ticket.ID)
	require.ErrorIs(t, err, ErrNotAssigned)
}

func TestCalendarFiltersByTechnicianAndRange(t *testing.T) {
	svc, _ := newService(newMemoryRepo())
	assigned(t, svc)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	visits, err := svc.Calendar(context.Background(), technician.ID, from, to)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	require.Equal(t, TaskInstallation, visits[0].TaskType)

	visits, err = svc.Calendar(context.Background(), otherTech.ID, from, to)
	require.NoError(t, err)
	require.Empty(t, visits)

	_, err = svc.Calendar(context.Background(), 0, to, from)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestListPaginates(t *testing.T) {
	svc, _ := newService(newMemoryRepo())
	for i := 0; i < 3; i++ {
		submitted(t, svc)
	}
	items, page, err := svc.List(context.Background(), ListFilter{PerPage: 500})
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, shared.MaxPerPage, page.PerPage)
	require.Equal(t, 1, page.TotalPages)
}
