package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagedive/deckqueue/internal/domain"
)

func TestDriftRebuild(t *testing.T) {
	e, room, _, _ := newTestEngine(t)

	enterAndJoin(e, "alice", "bob", "carol")
	require.Equal(t, domain.ModeStrict, e.mode.Current())

	// The deck says bob is up front, not alice: physical order wins,
	// non-occupants keep their prior relative order behind it.
	room.setOccupancy("bob", "bob", "carol")
	e.OnPerformanceStarted("bob", domain.Song{Title: "drifted"})

	assert.Equal(t, []domain.Identity{"bob", "carol", "alice"}, e.waitlist.Members())
}

func TestDriftRebuild_PreservesLedgerState(t *testing.T) {
	e, room, _, _ := newTestEngine(t)

	enterAndJoin(e, "alice", "bob", "carol")
	e.ledger.IncrementTurns("alice")
	e.ledger.ScheduleEviction("carol", domain.EvictTurnComplete)

	room.setOccupancy("bob", "bob", "alice")
	e.OnPerformanceStarted("bob", domain.Song{Title: "drifted"})

	assert.Equal(t, 1, e.ledger.Turns("alice"))
	_, pending := e.ledger.PendingEviction("carol")
	assert.True(t, pending)
}

func TestFillPolicy_GrantsReservationToFirstEligible(t *testing.T) {
	e, room, _, _ := newTestEngine(t)

	enterAndJoin(e, "dave", "erin")
	room.setOccupancy("", "frank")

	e.OnSlotLeft("gone")

	require.NotNil(t, e.resv)
	assert.Equal(t, domain.Identity("dave"), e.resv.holder)
	assert.Equal(t, 1, room.roomMsgCount("it's yours"))
	require.NotEmpty(t, room.dms["dave"])
	assert.Contains(t, room.dms["dave"][len(room.dms["dave"])-1], "your slot is ready")
}

func TestFillPolicy_SkipsOccupantsAndCooldowns(t *testing.T) {
	e, room, _, _ := newTestEngine(t)

	enterAndJoin(e, "dave", "erin", "frank")
	e.ledger.StartCooldown("dave", 10*time.Minute)
	room.setOccupancy("", "erin")

	e.OnSlotLeft("gone")

	// dave is cooling down and erin already occupies a slot.
	require.NotNil(t, e.resv)
	assert.Equal(t, domain.Identity("frank"), e.resv.holder)
}

func TestFillPolicy_FreeForAllWhenNobodyEligible(t *testing.T) {
	e, room, _, _ := newTestEngine(t)

	enterAndJoin(e, "erin")
	room.setOccupancy("", "erin")

	e.OnSlotLeft("gone")

	assert.Nil(t, e.resv)
	assert.Equal(t, 1, room.roomMsgCount("anyone may take it"))
}

func TestFillPolicy_NoReservationAtFullCapacity(t *testing.T) {
	e, room, _, _ := newTestEngine(t)

	enterAndJoin(e, "dave")
	room.setOccupancy("", "frank", "gina")

	e.OnSlotLeft("gone")

	assert.Nil(t, e.resv)
}

func TestQueueCuttingBlocked(t *testing.T) {
	e, room, _, _ := newTestEngine(t)

	enterAndJoin(e, "dave", "erin")
	room.setOccupancy("", "frank")
	e.OnSlotLeft("gone")
	require.NotNil(t, e.resv)
	token := e.resv.token

	// erin is waitlisted too; cutting in is still reverted.
	room.setOccupancy("", "frank", "erin")
	e.OnSlotJoined("erin")

	assert.Equal(t, []domain.Identity{"erin"}, room.evicted)
	require.NotNil(t, e.resv)
	assert.Equal(t, domain.Identity("dave"), e.resv.holder)
	assert.Equal(t, token, e.resv.token, "reservation expiry unchanged")
	assert.Equal(t, 1, room.roomMsgCount("reserved for dave"))
}

func TestReservationClaimedByHolder(t *testing.T) {
	e, room, _, _ := newTestEngine(t)

	enterAndJoin(e, "dave", "erin")
	room.setOccupancy("", "frank")
	e.OnSlotLeft("gone")
	require.NotNil(t, e.resv)

	room.setOccupancy("", "frank", "dave")
	e.OnSlotJoined("dave")

	assert.Nil(t, e.resv)
	assert.Empty(t, room.evicted)
	assert.Equal(t, 1, room.roomMsgCount("took their reserved slot"))
}

func TestReservationExpiry_RotatesAndRetries(t *testing.T) {
	e, room, _, _ := newTestEngine(t)

	enterAndJoin(e, "dave", "erin")
	room.setOccupancy("", "frank")
	e.OnSlotLeft("gone")
	require.NotNil(t, e.resv)
	token := e.resv.token

	e.reservationExpired(token)

	// Reordering penalty only, then the next eligible candidate gets
	// their own window.
	assert.Equal(t, []domain.Identity{"erin", "dave"}, e.waitlist.Members())
	assert.Equal(t, 1, room.roomMsgCount("missed their window"))
	require.NotNil(t, e.resv)
	assert.Equal(t, domain.Identity("erin"), e.resv.holder)

	// No cooldown for not showing up.
	_, cooling := e.ledger.CooldownRemaining("dave")
	assert.False(t, cooling)
}

func TestReservationReleasedWhenHolderLeavesQueue(t *testing.T) {
	e, room, _, _ := newTestEngine(t)

	enterAndJoin(e, "dave", "erin")
	room.setOccupancy("", "frank")
	e.OnSlotLeft("gone")
	require.NotNil(t, e.resv)
	require.Equal(t, domain.Identity("dave"), e.resv.holder)

	e.LeaveQueue("dave")

	// The slot does not stay parked on a known-gone holder; the next
	// eligible candidate gets their own window.
	assert.Equal(t, []domain.Identity{"erin"}, e.waitlist.Members())
	require.NotNil(t, e.resv)
	assert.Equal(t, domain.Identity("erin"), e.resv.holder)
}

func TestReservationReleasedOnAdminRemove(t *testing.T) {
	e, room, _, _ := newTestEngine(t)

	enterAndJoin(e, "dave", "erin")
	room.setOccupancy("", "frank")
	e.OnSlotLeft("gone")
	require.NotNil(t, e.resv)

	e.AdminRemove("dave")

	assert.Equal(t, []domain.Identity{"erin"}, e.waitlist.Members())
	require.NotNil(t, e.resv)
	assert.Equal(t, domain.Identity("erin"), e.resv.holder)
}

func TestReservationReleasedOnGraceExpiry(t *testing.T) {
	e, room, _, _ := newTestEngine(t)

	enterAndJoin(e, "dave", "erin")
	room.setOccupancy("", "frank")
	e.OnSlotLeft("gone")
	require.NotNil(t, e.resv)

	e.OnRoomLeft("dave")
	e.graceExpired("dave")

	assert.Equal(t, []domain.Identity{"erin"}, e.waitlist.Members())
	assert.Equal(t, 1, room.roomMsgCount("removed from the queue"))
	require.NotNil(t, e.resv)
	assert.Equal(t, domain.Identity("erin"), e.resv.holder)
}

func TestReservationExpiry_DepartedHolderNotReEnrolled(t *testing.T) {
	e, room, _, _ := newTestEngine(t)

	enterAndJoin(e, "dave", "erin")
	room.setOccupancy("", "frank")
	e.OnSlotLeft("gone")
	require.NotNil(t, e.resv)
	token := e.resv.token

	// The holder vanishes from the waitlist while the claim is armed.
	e.waitlist.Remove("dave")
	e.reservationExpired(token)

	assert.NotContains(t, e.waitlist.Members(), domain.Identity("dave"))
	assert.Equal(t, 0, room.roomMsgCount("missed their window"))
	require.NotNil(t, e.resv)
	assert.Equal(t, domain.Identity("erin"), e.resv.holder)
}

func TestReservationExpiry_StaleTokenIgnored(t *testing.T) {
	e, room, _, _ := newTestEngine(t)

	enterAndJoin(e, "dave", "erin")
	room.setOccupancy("", "frank")
	e.OnSlotLeft("gone")
	require.NotNil(t, e.resv)

	e.reservationExpired("stale-token")

	assert.Equal(t, domain.Identity("dave"), e.resv.holder)
	assert.Equal(t, []domain.Identity{"dave", "erin"}, e.waitlist.Members())
}

func TestSlotLeftClearsStalePendingEviction(t *testing.T) {
	e, room, _, _ := newTestEngine(t)

	enterAndJoin(e, "alice")
	e.ledger.ScheduleEviction("alice", domain.EvictTurnComplete)
	room.setOccupancy("")

	e.OnSlotLeft("alice")

	_, pending := e.ledger.PendingEviction("alice")
	assert.False(t, pending)
}

func TestSyncFromOccupancy(t *testing.T) {
	e, room, _, _ := newTestEngine(t)

	enterAndJoin(e, "alice", "bob")
	room.setOccupancy("", "carol", "bob")

	e.SyncFromOccupancy()

	assert.Equal(t, []domain.Identity{"carol", "bob", "alice"}, e.waitlist.Members())
}
