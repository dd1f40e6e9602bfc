package jobs

import (
	"os"
	"testing"
	"time"

	"travellog/config"
	"travellog/db"
	"travellog/mapview"
	"travellog/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := db.OpenSQLite(":memory:"); err != nil {
		panic(err)
	}
	if err := models.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestPurgeExpired(t *testing.T) {
	user, err := models.UserCreate("cleanup@example.com", nil)
	require.NoError(t, err)
	live, err := models.SessionCreate(user.ID, time.Hour)
	require.NoError(t, err)
	stale, err := models.SessionCreate(user.ID, time.Minute)
	require.NoError(t, err)
	_, err = models.VerificationTokenCreate("cleanup@example.com", time.Minute)
	require.NoError(t, err)

	// Nothing is due yet
	sessions, tokens := PurgeExpired(time.Now())
	assert.Zero(t, sessions)
	assert.Zero(t, tokens)

	sessions, tokens = PurgeExpired(time.Now().Add(10 * time.Minute))
	assert.EqualValues(t, 1, sessions)
	assert.EqualValues(t, 1, tokens)

	_, ok := models.SessionGet(live.SessionToken)
	assert.True(t, ok)
	_, ok = models.SessionGet(stale.SessionToken)
	assert.False(t, ok)
}

func TestStartCleanup(t *testing.T) {
	c, err := StartCleanup(mapview.NewRegistry(0))
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 2)
	<-c.Stop().Done()

	saved := config.CLEANUP_SCHEDULE
	defer func() { config.CLEANUP_SCHEDULE = saved }()
	config.CLEANUP_SCHEDULE = "not a schedule"
	_, err = StartCleanup(mapview.NewRegistry(0))
	assert.Error(t, err)
}

func TestSweepIdleViews(t *testing.T) {
	views := mapview.NewRegistry(0)
	idle := views.Mount("user-1", mapview.Options{}, nil)
	busy := views.Mount("user-1", mapview.Options{}, nil)
	release, err := busy.AttachStream()
	require.NoError(t, err)
	defer release()

	now := time.Now()
	assert.Zero(t, SweepIdleViews(views, now))

	later := now.Add(time.Duration(config.MAP_VIEW_IDLE_MINUTES+1) * time.Minute)
	assert.Equal(t, 1, SweepIdleViews(views, later))
	assert.False(t, idle.Mounted())
	assert.True(t, busy.Mounted())
	_, err = views.Get(idle.ID, "user-1")
	assert.Error(t, err)

	saved := config.MAP_VIEW_IDLE_MINUTES
	defer func() { config.MAP_VIEW_IDLE_MINUTES = saved }()
	config.MAP_VIEW_IDLE_MINUTES = 0
	release()
	assert.Zero(t, SweepIdleViews(views, later.Add(time.Hour)))
	assert.True(t, busy.Mounted())
}
