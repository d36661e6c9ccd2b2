package usecase_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jhoicas/crm-api/internal/application/notification"
	"github.com/jhoicas/crm-api/internal/application/usecase"
	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/infrastructure/sqlite"
)

// fixture base en memoria: 1 ADMIN, 2 SALES_MANAGER, 3 y 4 SALES_REP.
type fixture struct {
	db       *sql.DB
	users    *sqlite.UserRepo
	leads    *usecase.LeadUseCase
	deals    *usecase.DealUseCase
	userUC   *usecase.UserUseCase
	notifier *recordingNotifier

	admin, manager, repA, repB entity.Principal
}

type sent struct {
	UserID  int64
	Message string
	Type    notification.Type
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (n *recordingNotifier) Dispatch(_ context.Context, userID int64, message string, t notification.Type) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sent{UserID: userID, Message: message, Type: t})
	return true
}

func (n *recordingNotifier) all() []sent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sent(nil), n.sent...)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := sqlite.NewUserRepository(db)
	f := &fixture{
		db:       db,
		users:    users,
		notifier: &recordingNotifier{},
	}
	f.admin = seedUser(t, users, "Admin", "admin@crm.test", entity.RoleAdmin)
	f.manager = seedUser(t, users, "Marta", "marta@crm.test", entity.RoleSalesManager)
	f.repA = seedUser(t, users, "Ana", "ana@crm.test", entity.RoleSalesRep)
	f.repB = seedUser(t, users, "Beto", "beto@crm.test", entity.RoleSalesRep)

	f.leads = usecase.NewLeadUseCase(sqlite.NewLeadRepository(db), users)
	f.deals = usecase.NewDealUseCase(sqlite.NewDealRepository(db), users, sqlite.NewTxRunner(db), f.notifier, nil)
	f.userUC = usecase.NewUserUseCase(users, "password-por-defecto")
	return f
}

func seedUser(t *testing.T, repo *sqlite.UserRepo, name, email string, role entity.Role) entity.Principal {
	t.Helper()
	now := time.Now().UTC()
	u := &entity.User{Name: name, Email: email, PasswordHash: "x", Role: role, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Create(context.Background(), u))
	return entity.Principal{ID: u.ID, Role: role}
}

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }
func idPtr(v int64) *int64    { return &v }
