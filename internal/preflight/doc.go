// Package preflight verifies the environment before mediascan touches the
// library: directory permissions and the external binaries the enabled
// analysis kinds need.
package preflight
