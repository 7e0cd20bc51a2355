// Package lifecycle implements the campaign lifecycle state machine.
//
// The service layer owns every transition a campaign can make: answering
// the list-building questions, attaching or uploading a list, the list and
// copy approval gates, copy generation through the content gateway, and the
// launch handoff. The same rules cover play executions, the single-play
// variant with one output and no list stage. Each transition validates its
// guard against freshly locked state, writes the new state and any approval
// record atomically, and emits a best-effort notification after commit.
//
// The service depends only on interfaces defined in this package and never
// imports from api/. Repository implementations live in
// repository/postgres/; tests use an in-memory fake.
package lifecycle
