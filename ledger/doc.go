// Package ledger stores expense categories and transactions in PostgreSQL.
//
// Every query is scoped to the owner id of the authenticated caller. Fetch endpoints accept a
// grid-style filter model (column → value, with '%' meaning LIKE) and a sort model; only
// whitelisted columns are honored and every value is a bound parameter.
package ledger
