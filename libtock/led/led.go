// Package led wraps the kernel LED driver. LEDs complete synchronously, so there is
// no task half.
package led

import (
	"fmt"

	"tock/libtock/abi"
)

// Driver issues LED commands.
type Driver struct {
	k abi.Kernel
}

func New(k abi.Kernel) *Driver { return &Driver{k: k} }

// Count returns the number of LEDs.
func (d *Driver) Count() (uint, error) {
	return d.k.Command(abi.DriverLED, abi.LEDCmdCount, 0, 0)
}

func (d *Driver) On(n uint) error     { return d.cmd(abi.LEDCmdOn, n) }
func (d *Driver) Off(n uint) error    { return d.cmd(abi.LEDCmdOff, n) }
func (d *Driver) Toggle(n uint) error { return d.cmd(abi.LEDCmdToggle, n) }

func (d *Driver) cmd(c uint32, n uint) error {
	if _, err := d.k.Command(abi.DriverLED, c, n, 0); err != nil {
		return fmt.Errorf("led %d: %w", n, err)
	}
	return nil
}
