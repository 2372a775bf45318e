// Package users owns user accounts: the MongoDB repository, credential verification for the
// session engine ([Provider] implements goExpense.UserProvider) and the profile [Service].
//
// Password changes and account deletion revoke every session of the user through the
// [SessionRevoker] passed to the service.
package users
