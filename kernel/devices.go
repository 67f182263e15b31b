package kernel

import "tock/libtock/abi"

// TickTo advances the alarm clock to seq. An armed alarm whose expiration has been
// reached fires once with (now, expiration).
func (s *System) TickTo(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.alarm.now {
		return
	}
	s.alarm.now = seq
	s.checkAlarm()
}

// Now returns the alarm clock.
func (s *System) Now() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alarm.now
}

func (s *System) checkAlarm() {
	if !s.alarm.armed || s.alarm.expiration > s.alarm.now {
		return
	}
	s.alarm.armed = false
	s.schedule(abi.DriverAlarm, abi.AlarmSubCallback, uint(s.alarm.now), uint(s.alarm.expiration), 0)
}

func (s *System) alarmCommand(cmd uint32, arg0 uint) (uint, error) {
	switch cmd {
	case abi.AlarmCmdPresent:
		return 1, nil
	case abi.AlarmCmdFrequency:
		return uint(s.cfg.AlarmFrequency), nil
	case abi.AlarmCmdNow:
		return uint(s.alarm.now), nil
	case abi.AlarmCmdStop:
		if !s.alarm.armed {
			return 0, abi.ErrAlready
		}
		s.alarm.armed = false
		return 0, nil
	case abi.AlarmCmdStart:
		s.alarm.armed = true
		s.alarm.expiration = uint64(arg0)
		s.checkAlarm()
		return 0, nil
	default:
		return 0, abi.ErrNoSupport
	}
}

// SetButton records a button level. A change on an interrupt-enabled button
// raises an upcall with (button, level).
func (s *System) SetButton(n int, pressed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 || n >= len(s.buttons) {
		return abi.ErrInvalid
	}
	b := &s.buttons[n]
	if b.level == pressed {
		return nil
	}
	b.level = pressed
	if b.irq {
		s.schedule(abi.DriverButton, abi.ButtonSubCallback, uint(n), levelWord(pressed), 0)
	}
	return nil
}

func levelWord(pressed bool) uint {
	if pressed {
		return 1
	}
	return 0
}

// Button command 2 is both disable_irq and state: it disables the interrupt and
// returns the current level.
func (s *System) buttonCommand(cmd uint32, arg0 uint) (uint, error) {
	if cmd == abi.ButtonCmdCount {
		return uint(len(s.buttons)), nil
	}
	if arg0 >= uint(len(s.buttons)) {
		return 0, abi.ErrInvalid
	}
	b := &s.buttons[arg0]
	switch cmd {
	case abi.ButtonCmdEnableIRQ:
		b.irq = true
		return 0, nil
	case abi.ButtonCmdDisableIRQ:
		b.irq = false
		return levelWord(b.level), nil
	default:
		return 0, abi.ErrNoSupport
	}
}

// LEDOn reports the simulated LED state.
func (s *System) LEDOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.led.on
}

func (s *System) ledCommand(cmd uint32, arg0 uint) (uint, error) {
	count := uint(0)
	if s.dev.LED != nil {
		count = 1
	}
	if cmd == abi.LEDCmdCount {
		return count, nil
	}
	if arg0 >= count {
		return 0, abi.ErrInvalid
	}
	switch cmd {
	case abi.LEDCmdOn:
		s.setLED(true)
	case abi.LEDCmdOff:
		s.setLED(false)
	case abi.LEDCmdToggle:
		s.setLED(!s.led.on)
	default:
		return 0, abi.ErrNoSupport
	}
	return 0, nil
}

func (s *System) setLED(on bool) {
	s.led.on = on
	if on {
		s.dev.LED.High()
	} else {
		s.dev.LED.Low()
	}
}

// AlarmArmed returns the pending expiration, if any.
func (s *System) AlarmArmed() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alarm.expiration, s.alarm.armed
}

// IRQEnabled reports whether button n raises upcalls.
func (s *System) IRQEnabled(n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 || n >= len(s.buttons) {
		return false
	}
	return s.buttons[n].irq
}
