// Package main provides the entry point of ldapauth.
// The start command runs a Fiber web service exchanging wiki credentials
// for a signed token. Credentials are checked against an LDAP directory,
// profiles and group memberships are provisioned into the document store
// on success, and local accounts serve as a fallback.
package main
