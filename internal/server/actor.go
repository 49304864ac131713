package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
)

// MemberHeader names the acting team member.
const MemberHeader = "X-Member-ID"

type actorKey struct{}

// MemberResolver looks up team members by id.
type MemberResolver interface {
	Member(ctx context.Context, id string) (*domain.Member, error)
}

// ActorMiddleware resolves the X-Member-ID header to a team member and
// stores it in the request context. Requests without the header pass
// through anonymously; an unknown member is rejected.
func ActorMiddleware(members MemberResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(MemberHeader))
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}

			m, err := members.Member(r.Context(), id)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					writeError(w, r, domain.ErrAuthentication("unknown member "+id))
					return
				}
				writeError(w, r, err)
				return
			}

			AddLogField(r.Context(), "member_id", m.ID)
			ctx := context.WithValue(r.Context(), actorKey{}, *m)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetActor returns the member resolved by ActorMiddleware.
func GetActor(ctx context.Context) (domain.Member, bool) {
	m, ok := ctx.Value(actorKey{}).(domain.Member)
	return m, ok
}

func requireActor(w http.ResponseWriter, r *http.Request) (domain.Member, bool) {
	m, ok := GetActor(r.Context())
	if !ok {
		writeError(w, r, domain.ErrAuthentication("missing "+MemberHeader+" header"))
	}
	return m, ok
}
