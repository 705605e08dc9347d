package auth

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"
)

// Conn is the subset of *ldap.Conn used by the provider.
type Conn interface {
	Bind(username, password string) error
	Search(request *ldap.SearchRequest) (*ldap.SearchResult, error)
	StartTLS(config *tls.Config) error
	SetTimeout(timeout time.Duration)
	Close() error
}

// DialFunc opens a connection to an ldap:// or ldaps:// URL.
type DialFunc func(addr string, opts ...ldap.DialOpt) (Conn, error)

func dialURL(addr string, opts ...ldap.DialOpt) (Conn, error) {
	conn, err := ldap.DialURL(addr, opts...)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return conn, nil
}

// LDAPProvider authenticates users against an LDAP or Active Directory server
// and lists their directory groups.
type LDAPProvider struct {
	settings Settings
	dial     DialFunc
}

var (
	_ Directory   = (*LDAPProvider)(nil)
	_ GroupLookup = (*LDAPProvider)(nil)
)

// NewLDAPProvider creates a new LDAP provider.
func NewLDAPProvider(settings Settings) (*LDAPProvider, error) {
	if !settings.Enabled {
		return nil, ErrLDAPDisabled
	}

	return &LDAPProvider{settings: settings, dial: dialURL}, nil
}

// WithDialer replaces the function used to open connections.
func (p *LDAPProvider) WithDialer(dial DialFunc) *LDAPProvider {
	p.dial = dial
	return p
}

// URL returns the server URL.
func (p *LDAPProvider) URL() string {
	hostPort := net.JoinHostPort(p.settings.Host, strconv.Itoa(p.settings.Port))

	if p.settings.UseSSL {
		return "ldaps://" + hostPort
	}

	return "ldap://" + hostPort
}

// Connect establishes a connection to the LDAP server.
func (p *LDAPProvider) Connect(ctx context.Context) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}

	var tlsConfig *tls.Config
	if p.settings.UseSSL || p.settings.UseTLS {
		tlsConfig = &tls.Config{
			InsecureSkipVerify: p.settings.SkipVerify, //nolint:gosec // skipping verifying tls is ok
			ServerName:         p.settings.Host,
		}
	}

	conn, err := p.dial(p.URL(),
		ldap.DialWithTLSConfig(tlsConfig),
		ldap.DialWithDialer(&net.Dialer{Timeout: p.settings.Timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to %s: %w", ErrDirectoryUnavailable, p.URL(), err)
	}

	// Upgrade to TLS if requested (for non-SSL connections)
	if !p.settings.UseSSL && p.settings.UseTLS {
		if errStartTLS := conn.StartTLS(tlsConfig); errStartTLS != nil {
			closeConn(conn)
			return nil, fmt.Errorf("%w: failed to start TLS: %w", ErrDirectoryUnavailable, errStartTLS)
		}
	}

	if p.settings.Timeout > 0 {
		conn.SetTimeout(p.settings.Timeout)
	}

	return conn, nil
}

// Authenticate implements Directory. It binds with the service account, searches
// the user by ldap.UID_attr, binds as the user and checks the access groups.
func (p *LDAPProvider) Authenticate(ctx context.Context, login, password string) (*DirectoryEntry, error) {
	// an empty password is an unauthenticated bind on most servers
	if login == "" || password == "" {
		return nil, fmt.Errorf("%w: empty login or password", ErrInvalidCredentials)
	}

	conn, err := p.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer closeConn(conn)

	if errBind := p.bindService(conn, login, password); errBind != nil {
		return nil, errBind
	}

	userEntry, err := p.searchUserEntry(conn, login)
	if err != nil {
		return nil, err
	}

	if errBindUser := conn.Bind(userEntry.DN, password); errBindUser != nil {
		return nil, classify(errBindUser, "user bind failed")
	}

	entry := entryFromLDAP(userEntry)

	if p.settings.UserGroup == "" && p.settings.ExcludeGroup == "" {
		return entry, nil
	}

	// group checks run with the service account again
	if errRebind := p.bindService(conn, login, password); errRebind != nil {
		return nil, errRebind
	}

	if errAccess := p.checkAccess(conn, entry); errAccess != nil {
		return nil, errAccess
	}

	return entry, nil
}

// MemberGroups implements GroupLookup. It returns the DNs of the groups below
// ldap.base_DN matching ldap.group_filter for the user.
func (p *LDAPProvider) MemberGroups(ctx context.Context, dn, uid string) ([]string, error) {
	conn, err := p.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer closeConn(conn)

	if strings.Contains(p.settings.BindDN, "{0}") {
		// no credentials of the user are at hand, search anonymously
		log.Debug().Msg("ldap bind_DN depends on the login, searching groups anonymously")
	} else if errBind := p.bindService(conn, "", ""); errBind != nil {
		return nil, errBind
	}

	searchRequest := ldap.NewSearchRequest(
		p.settings.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0,
		p.timeLimit(),
		false,
		p.groupFilter(dn, uid),
		[]string{"dn"},
		nil,
	)

	searchResult, err := conn.Search(searchRequest)
	if err != nil {
		return nil, classify(err, "failed to search for groups")
	}

	groups := make([]string, len(searchResult.Entries))
	for i, entry := range searchResult.Entries {
		groups[i] = entry.DN
	}

	return groups, nil
}

// TestConnection tests the LDAP server connection and bind credentials.
// A bind DN depending on the login is not bound.
func (p *LDAPProvider) TestConnection(ctx context.Context) error {
	conn, err := p.Connect(ctx)
	if err != nil {
		return err
	}
	defer closeConn(conn)

	if strings.Contains(p.settings.BindDN, "{0}") {
		return nil
	}

	return p.bindService(conn, "", "")
}

// bindService binds with ldap.bind_DN after substituting {0} and {1}.
// An empty bind DN keeps the connection anonymous.
func (p *LDAPProvider) bindService(conn Conn, login, password string) error {
	if p.settings.BindDN == "" {
		return nil
	}

	bindDN := strings.ReplaceAll(p.settings.BindDN, "{0}", login)
	bindPass := strings.ReplaceAll(p.settings.BindPassword, "{1}", password)

	if err := conn.Bind(bindDN, bindPass); err != nil {
		if strings.Contains(p.settings.BindDN, "{0}") {
			return classify(err, "bind as "+bindDN+" failed")
		}

		// a rejected service account is a broken directory setup, not a bad login
		return fmt.Errorf("%w: failed to bind with service account: %w", ErrDirectoryUnavailable, err)
	}

	return nil
}

// searchUserEntry searches LDAP for the given login and returns a single entry.
func (p *LDAPProvider) searchUserEntry(conn Conn, login string) (*ldap.Entry, error) {
	filter := fmt.Sprintf("(%s=%s)", p.settings.UIDAttr, ldap.EscapeFilter(login))

	searchRequest := ldap.NewSearchRequest(
		p.settings.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		2, // Size limit, two is enough to detect ambiguity
		p.timeLimit(),
		false,
		filter,
		p.settings.Attributes(),
		nil,
	)

	searchResult, err := conn.Search(searchRequest)
	if err != nil && !ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) {
		return nil, classify(err, "failed to search for user")
	}

	if searchResult == nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, ErrMultipleUsersFound)
	}

	switch len(searchResult.Entries) {
	case 0:
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, ErrUserNotFound)
	case 1:
		return searchResult.Entries[0], nil
	default:
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, ErrMultipleUsersFound)
	}
}

// checkAccess enforces ldap.exclude_group and ldap.user_group.
func (p *LDAPProvider) checkAccess(conn Conn, entry *DirectoryEntry) error {
	uid := entry.Value(p.settings.UIDAttr)

	if p.settings.ExcludeGroup != "" {
		member, err := p.isMember(conn, p.settings.ExcludeGroup, entry.DN, uid)
		if err != nil {
			return err
		}

		if member {
			return fmt.Errorf("%w: %s is in the excluded group", ErrAccessDenied, entry.DN)
		}
	}

	if p.settings.UserGroup != "" {
		member, err := p.isMember(conn, p.settings.UserGroup, entry.DN, uid)
		if err != nil {
			return err
		}

		if !member {
			return fmt.Errorf("%w: %s is not in the user group", ErrAccessDenied, entry.DN)
		}
	}

	return nil
}

// isMember reads groupDN itself with the group filter of the user.
func (p *LDAPProvider) isMember(conn Conn, groupDN, dn, uid string) (bool, error) {
	searchRequest := ldap.NewSearchRequest(
		groupDN,
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		1,
		p.timeLimit(),
		false,
		p.groupFilter(dn, uid),
		[]string{"dn"},
		nil,
	)

	searchResult, err := conn.Search(searchRequest)
	if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
		log.Warn().Str("group", groupDN).Msg("ldap access group does not exist")
		return false, nil
	}

	if err != nil {
		return false, classify(err, "failed to read group "+groupDN)
	}

	return len(searchResult.Entries) > 0, nil
}

func (p *LDAPProvider) groupFilter(dn, uid string) string {
	return strings.NewReplacer(
		"{userdn}", ldap.EscapeFilter(dn),
		"{uid}", ldap.EscapeFilter(uid),
	).Replace(p.settings.GroupFilter)
}

func (p *LDAPProvider) timeLimit() int {
	return int(p.settings.Timeout / time.Second)
}

// classify sorts an LDAP error into ErrInvalidCredentials or ErrDirectoryUnavailable.
func classify(err error, msg string) error {
	if ldap.IsErrorAnyOf(err,
		ldap.LDAPResultInvalidCredentials,
		ldap.LDAPResultInappropriateAuthentication,
		ldap.LDAPResultUnwillingToPerform,
		ldap.LDAPResultInvalidDNSyntax,
		ldap.LDAPResultNoSuchObject,
	) {
		return fmt.Errorf("%w: %s: %w", ErrInvalidCredentials, msg, err)
	}

	return fmt.Errorf("%w: %s: %w", ErrDirectoryUnavailable, msg, err)
}

func closeConn(conn Conn) {
	if errClose := conn.Close(); errClose != nil {
		log.Warn().Err(errClose).Msg("failed to close LDAP connection")
	}
}
