// Package evm defines the capability interface that every chain backend
// must satisfy: contract calls, transaction signing and submission, ABI
// encoding/decoding, selector derivation, and exact unit conversion. Two
// interchangeable backends implement it against different chain-client
// libraries; the backend is chosen at construction time and never switches
// for the lifetime of a client. All operations return the uniform Result
// container so callers branch on data, not on panics or naked errors.
package evm
