package auth

import (
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/config"
)

// Property keys read by LoadSettings.
const (
	KeyEnabled        = "ldap.enabled"
	KeyServer         = "ldap.server"
	KeyPort           = "ldap.port"
	KeySSL            = "ldap.ssl"
	KeyStartTLS       = "ldap.starttls"
	KeySkipVerify     = "ldap.ssl_skip_verify"
	KeyTimeout        = "ldap.timeout"
	KeyBaseDN         = "ldap.base_DN"
	KeyBindDN         = "ldap.bind_DN"
	KeyBindPass       = "ldap.bind_pass"
	KeyUIDAttr        = "ldap.UID_attr"
	KeyFieldsMapping  = "ldap.fields_mapping"
	KeyGroupMapping   = "ldap.group_mapping"
	KeyGroupFilter    = "ldap.group_filter"
	KeyUserGroup      = "ldap.user_group"
	KeyExcludeGroup   = "ldap.exclude_group"
	KeyGroupCacheTTL  = "ldap.groupcache_expiration"
	KeyTryLocal       = "ldap.try_local"
	KeyUpdateUser     = "ldap.update_user"
	KeyMainWiki       = "wiki.main"
	defaultServer     = "localhost"
	defaultPort       = 389
	defaultSSLPort    = 636
	defaultTimeout    = 10
	defaultUIDAttr    = "cn"
	defaultFieldsMap  = "last_name=sn,first_name=givenName,email=mail"
	defaultCacheTTL   = 21600
	defaultMainWiki   = "xwiki"
	defaultGroupQuery = "(|(member={userdn})(uniqueMember={userdn})(memberUid={uid}))"
)

// Settings is the LDAP configuration resolved once per Service.
type Settings struct {
	// Enabled gates the directory. When false only local credentials are checked.
	Enabled bool
	// Host is the LDAP server hostname or IP address.
	Host string
	// Port is the LDAP server port (typically 389 for LDAP, 636 for LDAPS).
	Port int
	// UseSSL enables LDAPS.
	UseSSL bool
	// UseTLS enables StartTLS to upgrade a plain connection.
	UseTLS bool
	// SkipVerify skips TLS certificate verification (insecure, for testing only).
	SkipVerify bool
	// Timeout bounds dialing and every search.
	Timeout time.Duration
	// BaseDN is the base of user and group searches.
	BaseDN string
	// BindDN and BindPassword are used for searches. {0} and {1} are replaced with
	// the login and the password of the user.
	BindDN       string
	BindPassword string
	// UIDAttr holds the directory uid of a user and is searched for the login.
	UIDAttr string
	// Fields copies directory attributes into the user object.
	Fields []FieldMapping
	// Groups maps local groups to directory groups.
	Groups []GroupMapping
	// GroupFilter finds the groups of a user. {userdn} and {uid} are replaced.
	GroupFilter string
	// UserGroup, when set, is the only directory group allowed to log in.
	UserGroup string
	// ExcludeGroup, when set, is a directory group never allowed to log in.
	ExcludeGroup string
	// GroupCacheTTL is the lifetime of cached group matches. Zero disables the cache.
	GroupCacheTTL time.Duration
	// TryLocal falls back to the local password when the directory refuses the login.
	TryLocal bool
	// UpdateUser re-synchronizes profile fields on every login.
	UpdateUser bool
	// MainWiki is the wiki used when a request carries no scope.
	MainWiki string
}

// LoadSettings resolves Settings from props. Malformed mapping entries are
// skipped and returned as *MappingError values next to the settings.
func LoadSettings(props config.Properties) (Settings, []error) {
	s := Settings{
		Enabled:      parseBool(props.Property(KeyEnabled)),
		Host:         orDefault(props.Property(KeyServer), defaultServer),
		UseSSL:       parseBool(props.Property(KeySSL)),
		UseTLS:       parseBool(props.Property(KeyStartTLS)),
		SkipVerify:   parseBool(props.Property(KeySkipVerify)),
		BaseDN:       props.Property(KeyBaseDN),
		BindDN:       props.Property(KeyBindDN),
		BindPassword: props.Property(KeyBindPass),
		UIDAttr:      orDefault(props.Property(KeyUIDAttr), defaultUIDAttr),
		GroupFilter:  orDefault(props.Property(KeyGroupFilter), defaultGroupQuery),
		UserGroup:    props.Property(KeyUserGroup),
		ExcludeGroup: props.Property(KeyExcludeGroup),
		TryLocal:     parseBool(props.Property(KeyTryLocal)),
		UpdateUser:   parseBool(props.Property(KeyUpdateUser)),
		MainWiki:     orDefault(props.Property(KeyMainWiki), defaultMainWiki),
	}

	port := int64(defaultPort)
	if s.UseSSL {
		port = defaultSSLPort
	}

	s.Port = int(props.PropertyAsLong(KeyPort, port))
	s.Timeout = time.Duration(props.PropertyAsLong(KeyTimeout, defaultTimeout)) * time.Second

	ttl := props.PropertyAsLong(KeyGroupCacheTTL, defaultCacheTTL)
	if ttl < 0 {
		ttl = 0
	}

	s.GroupCacheTTL = time.Duration(ttl) * time.Second

	var errs []error

	fields := props.Property(KeyFieldsMapping)
	if fields == "" {
		fields = defaultFieldsMap
	}

	fieldMapping, fieldErrs := ParseFieldsMapping(KeyFieldsMapping, fields)
	groupMapping, groupErrs := ParseGroupMapping(KeyGroupMapping, props.Property(KeyGroupMapping))

	s.Fields = fieldMapping
	s.Groups = groupMapping

	errs = append(errs, fieldErrs...)
	errs = append(errs, groupErrs...)

	for _, err := range errs {
		log.Warn().Err(err).Msg("ignoring malformed ldap mapping entry")
	}

	return s, errs
}

// Attributes returns the directory attributes to fetch for a user.
func (s *Settings) Attributes() []string {
	attrs := []string{s.UIDAttr}

	for _, f := range s.Fields {
		attrs = append(attrs, f.Attribute)
	}

	return attrs
}

// parseBool accepts the usual spellings; anything else is false.
func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "yes", "on", "y":
		return true
	}

	b, err := strconv.ParseBool(v)

	return err == nil && b
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}

	return v
}
