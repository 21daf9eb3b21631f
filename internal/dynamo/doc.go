// Package dynamo provides the core primitives shared by the cyclic animation
// simulators:
//
//   - [Tick]: one discrete unit of simulated time
//   - [Vec2]: a position in the normalized 0-100 diagram space
//   - [ConfigError]: the single error kind raised by the simulators
//
// All simulators reject malformed configuration at construction time and
// report it as an error matching [ErrConfig]. No runtime data errors exist:
// every input is either static configuration or generated internally.
package dynamo
