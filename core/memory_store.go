package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a process local implementation of every store contract.
type MemoryStore struct {
	mu            sync.Mutex
	applications  map[string]Application
	grants        map[string]Grant
	accessTokens  map[string]AccessToken
	refreshTokens map[string]RefreshToken
	idTokens      map[string]IDToken
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		applications:  make(map[string]Application),
		grants:        make(map[string]Grant),
		accessTokens:  make(map[string]AccessToken),
		refreshTokens: make(map[string]RefreshToken),
		idTokens:      make(map[string]IDToken),
	}
}

func (s *MemoryStore) ApplicationStore() ApplicationStore { return memoryApplications{s} }

func (s *MemoryStore) GrantStore() GrantStore { return memoryGrants{s} }

func (s *MemoryStore) AccessTokenStore() AccessTokenStore { return memoryAccessTokens{s} }

func (s *MemoryStore) RefreshTokenStore() RefreshTokenStore { return memoryRefreshTokens{s} }

func (s *MemoryStore) IDTokenStore() IDTokenStore { return memoryIDTokens{s} }

func (s *MemoryStore) TokenIssueStore() TokenIssueStore { return s }

func (s *MemoryStore) ExpiredTokenStore() ExpiredTokenStore { return s }

type memoryApplications struct{ s *MemoryStore }

func (m memoryApplications) Create(_ context.Context, app Application) (Application, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(app.ClientID) == "" {
		return Application{}, fmt.Errorf("core: client id is required")
	}
	for _, existing := range s.applications {
		if existing.ClientID == app.ClientID {
			return Application{}, fmt.Errorf("core: client id already registered: %s", app.ClientID)
		}
	}
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	app.UpdatedAt = now
	app.UserID = cloneStringPtr(app.UserID)
	s.applications[app.ID] = app
	return app, nil
}

func (m memoryApplications) Get(_ context.Context, id string) (Application, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.applications[id]
	if !ok {
		return Application{}, ErrNotFound
	}
	app.UserID = cloneStringPtr(app.UserID)
	return app, nil
}

func (m memoryApplications) GetByClientID(_ context.Context, clientID string) (Application, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, app := range s.applications {
		if app.ClientID == clientID {
			app.UserID = cloneStringPtr(app.UserID)
			return app, nil
		}
	}
	return Application{}, ErrNotFound
}

func (m memoryApplications) Update(_ context.Context, app Application) (Application, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.applications[app.ID]
	if !ok {
		return Application{}, ErrNotFound
	}
	app.CreatedAt = existing.CreatedAt
	app.UpdatedAt = time.Now().UTC()
	app.UserID = cloneStringPtr(app.UserID)
	s.applications[app.ID] = app
	return app, nil
}

func (m memoryApplications) Delete(_ context.Context, id string) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.applications[id]; !ok {
		return ErrNotFound
	}
	for key, refresh := range s.refreshTokens {
		if refresh.ApplicationID == id {
			delete(s.refreshTokens, key)
		}
	}
	for key, access := range s.accessTokens {
		if access.ApplicationID == id {
			delete(s.accessTokens, key)
		}
	}
	for key, token := range s.idTokens {
		if token.ApplicationID == id {
			delete(s.idTokens, key)
		}
	}
	for key, grant := range s.grants {
		if grant.ApplicationID == id {
			delete(s.grants, key)
		}
	}
	delete(s.applications, id)
	return nil
}

type memoryGrants struct{ s *MemoryStore }

func (m memoryGrants) Create(_ context.Context, grant Grant) (Grant, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.applications[grant.ApplicationID]; !ok {
		return Grant{}, fmt.Errorf("core: grant application not found: %s", grant.ApplicationID)
	}
	for _, existing := range s.grants {
		if existing.Code == grant.Code {
			return Grant{}, fmt.Errorf("core: grant code already exists")
		}
	}
	if grant.ID == "" {
		grant.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grant.CreatedAt.IsZero() {
		grant.CreatedAt = now
	}
	grant.UpdatedAt = now
	grant.Expires = cloneTimePtr(grant.Expires)
	s.grants[grant.ID] = grant
	return grant, nil
}

func (m memoryGrants) GetByCode(_ context.Context, code string) (Grant, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.grantByCodeLocked(code)
	if !ok {
		return Grant{}, ErrNotFound
	}
	return grant, nil
}

func (m memoryGrants) Delete(_ context.Context, id string) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.grants[id]; !ok {
		return ErrNotFound
	}
	delete(s.grants, id)
	return nil
}

func (s *MemoryStore) grantByCodeLocked(code string) (Grant, bool) {
	for _, grant := range s.grants {
		if grant.Code == code {
			grant.Expires = cloneTimePtr(grant.Expires)
			return grant, true
		}
	}
	return Grant{}, false
}

type memoryAccessTokens struct{ s *MemoryStore }

func (m memoryAccessTokens) Get(_ context.Context, id string) (AccessToken, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.accessTokens[id]
	if !ok {
		return AccessToken{}, ErrNotFound
	}
	return cloneAccessToken(token), nil
}

func (m memoryAccessTokens) GetByToken(_ context.Context, value string) (AccessToken, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, token := range s.accessTokens {
		if token.Token == value {
			return cloneAccessToken(token), nil
		}
	}
	return AccessToken{}, ErrNotFound
}

func (m memoryAccessTokens) Delete(_ context.Context, id string) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accessTokens[id]; !ok {
		return ErrNotFound
	}
	s.deleteAccessTokenLocked(id)
	return nil
}

func (s *MemoryStore) deleteAccessTokenLocked(id string) {
	for key, refresh := range s.refreshTokens {
		if refresh.AccessTokenID != nil && *refresh.AccessTokenID == id {
			delete(s.refreshTokens, key)
		}
	}
	delete(s.accessTokens, id)
}

type memoryRefreshTokens struct{ s *MemoryStore }

func (m memoryRefreshTokens) GetByToken(_ context.Context, value string) (RefreshToken, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.refreshByTokenLocked(value)
	if !ok {
		return RefreshToken{}, ErrNotFound
	}
	return token, nil
}

func (m memoryRefreshTokens) Revoke(_ context.Context, id string, at time.Time) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.refreshTokens[id]
	if !ok {
		return ErrNotFound
	}
	s.revokeRefreshLocked(token, at)
	return nil
}

func (m memoryRefreshTokens) RevokeFamily(_ context.Context, family string, at time.Time) (int, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(family) == "" {
		return 0, nil
	}
	count := 0
	for _, token := range s.refreshTokens {
		if token.TokenFamily != family || token.Revoked != nil {
			continue
		}
		s.revokeRefreshLocked(token, at)
		count++
	}
	return count, nil
}

func (s *MemoryStore) revokeRefreshLocked(token RefreshToken, at time.Time) {
	if token.AccessTokenID != nil {
		delete(s.accessTokens, *token.AccessTokenID)
	}
	token.AccessTokenID = nil
	if token.Revoked == nil {
		token.Revoked = timePtr(at.UTC())
	}
	token.UpdatedAt = at.UTC()
	s.refreshTokens[token.ID] = token
}

func (s *MemoryStore) refreshByTokenLocked(value string) (RefreshToken, bool) {
	for _, token := range s.refreshTokens {
		if token.Token == value {
			return cloneRefreshToken(token), true
		}
	}
	return RefreshToken{}, false
}

type memoryIDTokens struct{ s *MemoryStore }

func (m memoryIDTokens) Get(_ context.Context, id string) (IDToken, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.idTokens[id]
	if !ok {
		return IDToken{}, ErrNotFound
	}
	return cloneIDToken(token), nil
}

func (m memoryIDTokens) GetByToken(_ context.Context, value string) (IDToken, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, token := range s.idTokens {
		if token.Token == value {
			return cloneIDToken(token), nil
		}
	}
	return IDToken{}, ErrNotFound
}

func (m memoryIDTokens) Delete(_ context.Context, id string) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.idTokens[id]; !ok {
		return ErrNotFound
	}
	for key, access := range s.accessTokens {
		if access.IDTokenID != nil && *access.IDTokenID == id {
			access.IDTokenID = nil
			s.accessTokens[key] = access
		}
	}
	delete(s.idTokens, id)
	return nil
}

func (s *MemoryStore) IssueTokens(_ context.Context, in IssueTokensInput) (IssuedTokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertTokensLocked(in)
}

func (s *MemoryStore) ExchangeGrant(_ context.Context, code string, build GrantExchangeFunc) (IssuedTokens, error) {
	if build == nil {
		return IssuedTokens{}, fmt.Errorf("core: grant exchange builder is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.grantByCodeLocked(code)
	if !ok {
		return IssuedTokens{}, ErrNotFound
	}
	in, err := build(grant)
	if err != nil {
		return IssuedTokens{}, err
	}
	if err := s.checkInsertLocked(in); err != nil {
		return IssuedTokens{}, err
	}
	delete(s.grants, grant.ID)
	return s.insertTokensLocked(in)
}

func (s *MemoryStore) RotateRefreshToken(
	_ context.Context,
	value string,
	at time.Time,
	build RefreshRotationFunc,
) (IssuedTokens, error) {
	if build == nil {
		return IssuedTokens{}, fmt.Errorf("core: refresh rotation builder is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	refresh, ok := s.refreshByTokenLocked(value)
	if !ok {
		return IssuedTokens{}, ErrNotFound
	}
	if refresh.Revoked != nil {
		if refresh.Rotated {
			return IssuedTokens{}, ErrRefreshTokenRotated
		}
		return IssuedTokens{}, ErrRefreshTokenRevoked
	}
	var access *AccessToken
	if refresh.AccessTokenID != nil {
		if current, exists := s.accessTokens[*refresh.AccessTokenID]; exists {
			copied := cloneAccessToken(current)
			access = &copied
		}
	}
	in, err := build(refresh, access)
	if err != nil {
		return IssuedTokens{}, err
	}
	if err := s.checkInsertLocked(in); err != nil {
		return IssuedTokens{}, err
	}
	rotated := s.refreshTokens[refresh.ID]
	rotated.Rotated = true
	s.revokeRefreshLocked(rotated, at)
	return s.insertTokensLocked(in)
}

func (s *MemoryStore) checkInsertLocked(in IssueTokensInput) error {
	if strings.TrimSpace(in.AccessToken.Token) == "" {
		return fmt.Errorf("core: access token value is required")
	}
	if _, ok := s.applications[in.AccessToken.ApplicationID]; !ok {
		return fmt.Errorf("core: token application not found: %s", in.AccessToken.ApplicationID)
	}
	for _, existing := range s.accessTokens {
		if existing.Token == in.AccessToken.Token {
			return fmt.Errorf("core: access token value already exists")
		}
	}
	if in.RefreshToken != nil {
		for _, existing := range s.refreshTokens {
			if existing.Token == in.RefreshToken.Token {
				return fmt.Errorf("core: refresh token value already exists")
			}
		}
	}
	return nil
}

func (s *MemoryStore) insertTokensLocked(in IssueTokensInput) (IssuedTokens, error) {
	if err := s.checkInsertLocked(in); err != nil {
		return IssuedTokens{}, err
	}
	now := time.Now().UTC()
	out := IssuedTokens{}

	if in.IDToken != nil {
		token := cloneIDToken(*in.IDToken)
		if token.ID == "" {
			token.ID = uuid.NewString()
		}
		stampCreated(&token.CreatedAt, &token.UpdatedAt, now)
		s.idTokens[token.ID] = token
		in.AccessToken.IDTokenID = cloneStringPtr(&token.ID)
		out.IDToken = &token
	}

	access := cloneAccessToken(in.AccessToken)
	if access.ID == "" {
		access.ID = uuid.NewString()
	}
	stampCreated(&access.CreatedAt, &access.UpdatedAt, now)
	s.accessTokens[access.ID] = access
	out.AccessToken = cloneAccessToken(access)

	if in.RefreshToken != nil {
		refresh := cloneRefreshToken(*in.RefreshToken)
		if refresh.ID == "" {
			refresh.ID = uuid.NewString()
		}
		if refresh.TokenFamily == "" {
			refresh.TokenFamily = uuid.NewString()
		}
		refresh.AccessTokenID = cloneStringPtr(&access.ID)
		stampCreated(&refresh.CreatedAt, &refresh.UpdatedAt, now)
		s.refreshTokens[refresh.ID] = refresh
		copied := cloneRefreshToken(refresh)
		out.RefreshToken = &copied
	}
	return out, nil
}

func (s *MemoryStore) DeleteExpiredRefreshTokens(_ context.Context, cutoff time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := []string{}
	for id, refresh := range s.refreshTokens {
		if refresh.Revoked != nil && !refresh.Revoked.After(cutoff) {
			ids = append(ids, id)
			continue
		}
		if refresh.AccessTokenID == nil {
			continue
		}
		access, ok := s.accessTokens[*refresh.AccessTokenID]
		if ok && isExpiredAt(access.Expires, cutoff) {
			ids = append(ids, id)
		}
	}
	ids = limitIDs(ids, limit)
	for _, id := range ids {
		refresh := s.refreshTokens[id]
		if refresh.AccessTokenID != nil {
			delete(s.accessTokens, *refresh.AccessTokenID)
		}
		delete(s.refreshTokens, id)
	}
	return len(ids), nil
}

func (s *MemoryStore) DeleteExpiredAccessTokens(_ context.Context, cutoff time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	referenced := make(map[string]struct{})
	for _, refresh := range s.refreshTokens {
		if refresh.AccessTokenID != nil {
			referenced[*refresh.AccessTokenID] = struct{}{}
		}
	}
	ids := []string{}
	for id, access := range s.accessTokens {
		if _, ok := referenced[id]; ok {
			continue
		}
		if isExpiredAt(access.Expires, cutoff) {
			ids = append(ids, id)
		}
	}
	ids = limitIDs(ids, limit)
	for _, id := range ids {
		delete(s.accessTokens, id)
	}
	return len(ids), nil
}

func (s *MemoryStore) DeleteExpiredIDTokens(_ context.Context, cutoff time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	referenced := make(map[string]struct{})
	for _, access := range s.accessTokens {
		if access.IDTokenID != nil {
			referenced[*access.IDTokenID] = struct{}{}
		}
	}
	ids := []string{}
	for id, token := range s.idTokens {
		if _, ok := referenced[id]; ok {
			continue
		}
		if isExpiredAt(token.Expires, cutoff) {
			ids = append(ids, id)
		}
	}
	ids = limitIDs(ids, limit)
	for _, id := range ids {
		delete(s.idTokens, id)
	}
	return len(ids), nil
}

func (s *MemoryStore) DeleteExpiredGrants(_ context.Context, now time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := []string{}
	for id, grant := range s.grants {
		if isExpiredAt(grant.Expires, now) {
			ids = append(ids, id)
		}
	}
	ids = limitIDs(ids, limit)
	for _, id := range ids {
		delete(s.grants, id)
	}
	return len(ids), nil
}

func limitIDs(ids []string, limit int) []string {
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		return ids[:limit]
	}
	return ids
}

func stampCreated(createdAt *time.Time, updatedAt *time.Time, now time.Time) {
	if createdAt.IsZero() {
		*createdAt = now
	}
	if updatedAt.IsZero() {
		*updatedAt = now
	}
}

func cloneAccessToken(token AccessToken) AccessToken {
	token.UserID = cloneStringPtr(token.UserID)
	token.Expires = cloneTimePtr(token.Expires)
	token.IDTokenID = cloneStringPtr(token.IDTokenID)
	token.SourceRefreshTokenID = cloneStringPtr(token.SourceRefreshTokenID)
	return token
}

func cloneRefreshToken(token RefreshToken) RefreshToken {
	token.UserID = cloneStringPtr(token.UserID)
	token.AccessTokenID = cloneStringPtr(token.AccessTokenID)
	token.Revoked = cloneTimePtr(token.Revoked)
	return token
}

func cloneIDToken(token IDToken) IDToken {
	token.UserID = cloneStringPtr(token.UserID)
	token.Expires = cloneTimePtr(token.Expires)
	return token
}
