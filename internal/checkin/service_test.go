package checkin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/techxelarate/backend/internal/bus"
	"github.com/techxelarate/backend/internal/db"
	"github.com/techxelarate/backend/internal/models"
	"github.com/techxelarate/backend/internal/store"
)

var testDBCounter uint64

func newTestService(t *testing.T) (*Service, *store.Store, *bus.Bus) {
	t.Helper()
	id := atomic.AddUint64(&testDBCounter, 1)
	dsn := fmt.Sprintf("file:checkintest%d?mode=memory&cache=shared&_pragma=busy_timeout(5000)", id)
	database, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close() })

	st := store.New(database)
	b := bus.New()
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	svc := New(st, b, WithClock(func() time.Time { return now }))
	return svc, st, b
}

func seedTeam(t *testing.T, st *store.Store, email, code string) *models.Team {
	t.Helper()
	team := &models.Team{
		TeamCode:    code,
		TeamName:    "Bit Crushers",
		LeaderName:  "Priya",
		LeaderEmail: email,
		LeaderPhone: "9876543210",
		CollegeName: "LBRCE",
		Year:        "3",
		Domain:      "AI/ML",
		AccessKey:   "k3YAbCdEf9",
	}
	members := []models.Member{
		{Index: 0, Name: "Priya", Email: email, Phone: "9876543210",
			ParticipantID: code + "-000", IsTeamLeader: true},
		{Index: 1, Name: "Rahul", Email: "rahul@example.com", Phone: "9876543211",
			ParticipantID: code + "-001"},
	}
	if err := st.InsertTeam(context.Background(), "HACK2026", team, members); err != nil {
		t.Fatalf("seed team: %v", err)
	}
	return team
}

func scanPayload(t *testing.T, team *models.Team, participantID string) string {
	t.Helper()
	b, err := json.Marshal(models.ScanPayload{
		TeamCode:      team.TeamCode,
		ParticipantID: participantID,
		Timestamp:     "2026-03-14T09:00:00Z",
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return string(b)
}

func TestScan_ChecksTeamIn(t *testing.T) {
	svc, st, _ := newTestService(t)
	team := seedTeam(t, st, "priya@example.com", "TEAM-AAAAAA")

	resp, err := svc.Scan(context.Background(), scanPayload(t, team, "TEAM-AAAAAA-001"))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if resp.Status != "checked_in" || !resp.Attendance {
		t.Errorf("response: %+v", resp)
	}
	if resp.TeamID != team.TeamID {
		t.Errorf("team id: got %q", resp.TeamID)
	}
	// The scanned member, not the leader, is echoed back.
	if resp.Participant == nil || resp.Participant.Name != "Rahul" {
		t.Errorf("participant: %+v", resp.Participant)
	}
}

func TestScan_PublishesEvent(t *testing.T) {
	svc, st, b := newTestService(t)
	team := seedTeam(t, st, "priya@example.com", "TEAM-AAAAAA")

	events, cancel := b.Subscribe()
	defer cancel()

	if _, err := svc.Scan(context.Background(), scanPayload(t, team, "TEAM-AAAAAA-000")); err != nil {
		t.Fatalf("scan: %v", err)
	}

	select {
	case ev := <-events:
		if ev.TeamID != team.TeamID {
			t.Errorf("event team: got %q", ev.TeamID)
		}
	default:
		t.Fatal("no event published")
	}
}

func TestScan_SecondScanConflicts(t *testing.T) {
	svc, st, _ := newTestService(t)
	team := seedTeam(t, st, "priya@example.com", "TEAM-AAAAAA")
	ctx := context.Background()

	first, err := svc.Scan(ctx, scanPayload(t, team, "TEAM-AAAAAA-000"))
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}

	// Any member's card loses once the team is in.
	_, err = svc.Scan(ctx, scanPayload(t, team, "TEAM-AAAAAA-001"))
	var dup *AlreadyCheckedInError
	if !errors.As(err, &dup) {
		t.Fatalf("got %v, want AlreadyCheckedInError", err)
	}
	if !dup.CheckInTime.Equal(first.CheckInTime) {
		t.Errorf("duplicate carries %v, want winner's %v", dup.CheckInTime, first.CheckInTime)
	}
}

func TestScan_MalformedPayloads(t *testing.T) {
	svc, st, _ := newTestService(t)
	seedTeam(t, st, "priya@example.com", "TEAM-AAAAAA")
	ctx := context.Background()

	cases := []struct {
		name string
		raw  string
	}{
		{"not json", "https://example.com/some-random-qr"},
		{"missing team_code", `{"participant_id":"TEAM-AAAAAA-000"}`},
		{"missing participant_id", `{"team_code":"TEAM-AAAAAA"}`},
		{"foreign participant", `{"team_code":"TEAM-AAAAAA","participant_id":"TEAM-ZZZZZZ-000"}`},
	}
	for _, c := range cases {
		_, err := svc.Scan(ctx, c.raw)
		var malformed *MalformedPayloadError
		if !errors.As(err, &malformed) {
			t.Errorf("%s: got %v, want MalformedPayloadError", c.name, err)
		}
	}
}

func TestScan_UnknownTeam(t *testing.T) {
	svc, _, _ := newTestService(t)
	raw := `{"team_code":"TEAM-ZZZZZZ","participant_id":"TEAM-ZZZZZZ-000"}`
	if _, err := svc.Scan(context.Background(), raw); !errors.Is(err, ErrTeamNotFound) {
		t.Fatalf("got %v, want ErrTeamNotFound", err)
	}
}

func TestManual_ChecksTeamIn(t *testing.T) {
	svc, st, _ := newTestService(t)
	team := seedTeam(t, st, "priya@example.com", "TEAM-AAAAAA")

	resp, err := svc.Manual(context.Background(), team.TeamID)
	if err != nil {
		t.Fatalf("manual: %v", err)
	}
	if resp.TeamCode != "TEAM-AAAAAA" {
		t.Errorf("team code: got %q", resp.TeamCode)
	}
	// Manual mode echoes the leader as context.
	if resp.Participant == nil || !resp.Participant.IsTeamLeader {
		t.Errorf("participant: %+v", resp.Participant)
	}
}

func TestManual_RejectsBadShape(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, id := range []string{"", "hack2026-001", "HACK2026-01", "HACK2026", "DROP TABLE teams"} {
		_, err := svc.Manual(ctx, id)
		var malformed *MalformedPayloadError
		if !errors.As(err, &malformed) {
			t.Errorf("%q: got %v, want MalformedPayloadError", id, err)
		}
	}
}

func TestManual_UnknownTeam(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Manual(context.Background(), "HACK2026-999"); !errors.Is(err, ErrTeamNotFound) {
		t.Fatalf("got %v, want ErrTeamNotFound", err)
	}
}
