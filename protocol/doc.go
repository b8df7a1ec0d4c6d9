// This package implements encoding and decoding of the frames that a host
// exchanges with an SCI device over a serial link.
//
// The protocol aims to be
//
// - cheap to parse on a small microcontroller
// - human readable on a terminal
// - strictly request/response, exactly one exchange in flight
//
// === General Syntax
//
// - every frame is wrapped in STX (0x02) and ETX (0x03)
// - the payload between them is pure ASCII
// - a payload is `<number><kind><body>`
// - numeric fields are rendered in the channel's NumberFormat, either compact
//   uppercase hex without leading zero nibbles or decimal text
//
// The kind character is both the command identifier and the separator between
// the command number and the body:
//
//   ```
//     ?  GETVAR
//     !  SETVAR
//     :  COMMAND (function invocation)
//     >  UPSTREAM
//     <  DOWNSTREAM
//     #  REJECTED
//   ```
//
// === GETVAR
//
//  ```
//    > 1A?
//    < 1A?ACK;3E8
//  ```
//
// === SETVAR
//
//  ```
//    > 1A!3E8
//    < 1A!ACK
//  ```
//
// === COMMAND
//
// Arguments are comma separated. A command that returns data answers with
// `DAT;<length>;<values>`. If the values do not fit into one frame the host
// issues the command again and every consecutive frame carries only the
// remaining values, without designator or length.
//
//  ```
//    > 3:1,FF
//    < 3:DAT;3;A
//    > 3:
//    < 3:B,C
//  ```
//
// === UPSTREAM
//
// A command may instead announce a raw byte stream with `UPS;<length>`. The
// host then polls with `<number>>` and each reply carries hex encoded bytes.
//
//  ```
//    > 4:
//    < 4:UPS;6
//    > 4>
//    < 4>010203
//    > 4>
//    < 4>040506
//  ```
//
// === Error responses
//
//  ```
//    < 1A?NAK
//    < 1A?ERR;5
//  ```
//
// NAK means the device does not know the number. ERR carries a device
// specific error code.
//
package protocol
