// Package host runs wasm guests with the native-call bridge attached.
//
// An Executor owns one wazero runtime with WASI preview 1 and one bridge, so
// every guest it instantiates shares the same native module registry. Grants
// from the configuration, a grant store, or per-guest maps restrict what
// guests may bind; without any grants the bridge is unrestricted.
//
// ConfigLoader turns YAML into a validated entities.BridgeConfig.
package host
