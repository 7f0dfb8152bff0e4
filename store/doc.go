// Package store provides the key-value storage contract of the fundraiser
// resolvers and its DynamoDB implementation.
//
// Resolvers talk to a [Backend]: single-item reads and writes guarded by a
// [Condition], partition queries with an optional filter, and counts. The
// condition is evaluated atomically with the write, so ownership and
// single-use checks hold even under concurrent callers.
//
// # Conditions
//
// Conditions are built from a handful of constructors and combined with
// [And] and [Or]:
//
//	cond := store.And(
//	    store.AttributeExists("catalogId"),
//	    store.Equal("ownerAccountId", callerID),
//	)
//
// A failed condition is reported as [ErrConditionFailed]. Callers map it to
// the domain error that fits the operation.
//
// # Tables
//
// [Config] names the tables and secondary indexes. [DefaultConfig] matches the
// layout the CDK stack deploys. [DefaultRegistry] records which tables hold the
// dependents of a profile or campaign so they can be cascaded on delete.
//
// # Errors
//
//   - [ErrNotFound] - item doesn't exist
//   - [ErrConditionFailed] - write precondition did not hold
//   - [ErrMissingKey] - key attribute missing from a query or item
//   - [ErrUnknownTable] - table name not known to the backend
package store
