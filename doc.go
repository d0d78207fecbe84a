// Package rover provides precision movement sequencing for a two-wheel
// differential-drive robot built from Feetech STS bus servos.
//
// Movements are specified in human units (inches, degrees, percent speed),
// queued into an ordered sequence, and executed with a precomputed time
// budget per command so that every move is deterministic regardless of how
// the motors respond in real time.
//
// # Installation
//
//	go install github.com/gwillem/rover/cmd/rover@latest
//
// # Usage
//
// First, run setup to detect the base and record its drive geometry:
//
//	rover setup
//
// Then build and run movement sequences interactively:
//
//	rover compose
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/rover: CLI with setup and compose commands
//   - pkg/kinematics: motion timing calculator
//   - pkg/drive: actuator contract and Feetech differential-drive base
//   - pkg/sequence: movement sequence engine
package rover
