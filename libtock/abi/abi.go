// Package abi describes the four-call kernel interface the drivers are built on:
// command, subscribe, allow and yield.
//
// Numbers in this package mirror the kernel's driver table and must not change.
package abi

import "context"

// DriverNum identifies a kernel driver.
type DriverNum uint32

const (
	DriverAlarm   DriverNum = 0
	DriverConsole DriverNum = 1
	DriverLED     DriverNum = 2
	DriverButton  DriverNum = 3
)

// Alarm commands and subscriptions.
const (
	AlarmCmdPresent   uint32 = 0
	AlarmCmdFrequency uint32 = 1
	AlarmCmdNow       uint32 = 2
	AlarmCmdStop      uint32 = 3
	AlarmCmdStart     uint32 = 4

	AlarmSubCallback uint32 = 0
)

// Console commands, subscriptions and allow slots.
const (
	ConsoleCmdWrite     uint32 = 1
	ConsoleCmdRead      uint32 = 2
	ConsoleCmdReadAbort uint32 = 3

	ConsoleSubWrite uint32 = 1
	ConsoleSubRead  uint32 = 2

	ConsoleAllowWrite uint32 = 1
	ConsoleAllowRead  uint32 = 2
)

// LED commands.
const (
	LEDCmdCount  uint32 = 0
	LEDCmdOn     uint32 = 1
	LEDCmdOff    uint32 = 2
	LEDCmdToggle uint32 = 3
)

// Button commands and subscriptions.
//
// ButtonCmdDisableIRQ and ButtonCmdState share a number in the kernel table.
const (
	ButtonCmdCount      uint32 = 0
	ButtonCmdEnableIRQ  uint32 = 1
	ButtonCmdDisableIRQ uint32 = 2
	ButtonCmdState      uint32 = 2

	ButtonSubCallback uint32 = 0
)

// Upcall is invoked by the kernel, from inside Yield, when a subscribed event fires.
type Upcall func(arg0, arg1, arg2, userdata uint)

// CallbackMessage is one upcall captured verbatim. Argument meaning is driver-specific.
type CallbackMessage struct {
	Arg0     uint
	Arg1     uint
	Arg2     uint
	Userdata uint
}

// Kernel is the system call surface available to a process.
type Kernel interface {
	// Command issues a driver command and returns its success value.
	Command(driver DriverNum, cmd uint32, arg0, arg1 uint) (uint, error)
	// Subscribe registers fn for the driver's subscribe slot. A nil fn unsubscribes.
	Subscribe(driver DriverNum, sub uint32, fn Upcall, userdata uint) error
	// Allow shares buf with the driver until it is replaced by another Allow.
	Allow(driver DriverNum, allow uint32, buf []byte) error
	// Yield blocks until one upcall has been delivered or ctx is done.
	Yield(ctx context.Context) error
}
