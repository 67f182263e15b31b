package hal

import "testing"

func TestButtonPinsOrdered(t *testing.T) {
	btn1 := newVirtualPin("BTN1", GPIOCapInput)
	btn0 := newVirtualPin("BTN0", GPIOCapInput|GPIOCapPullUp)
	btn3 := newVirtualPin("BTN3", GPIOCapInput)
	g := newVirtualGPIO([]GPIOPin{
		newVirtualPin("GPIO1", GPIOCapInput|GPIOCapOutput),
		btn1,
		newVirtualPin("BTNX", GPIOCapInput),
		btn0,
		btn3,
	})

	pins := ButtonPins(g)
	if len(pins) != 2 {
		t.Fatalf("ButtonPins() len = %d, want 2", len(pins))
	}
	if pins[0].Name() != "BTN0" || pins[1].Name() != "BTN1" {
		t.Fatalf("ButtonPins() = %s, %s, want BTN0, BTN1", pins[0].Name(), pins[1].Name())
	}
}

func TestButtonPinsNilGPIO(t *testing.T) {
	if pins := ButtonPins(nil); pins != nil {
		t.Fatalf("ButtonPins(nil) = %v, want nil", pins)
	}
	if pins := ButtonPins(nullGPIO{}); pins != nil {
		t.Fatalf("ButtonPins(nullGPIO) = %v, want nil", pins)
	}
}

func TestVirtualPinDrive(t *testing.T) {
	p := newVirtualPin("BTN0", GPIOCapInput)
	if err := p.Configure(GPIOModeInput, GPIOPullNone); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if err := p.Write(true); err == nil {
		t.Fatalf("Write() on input pin error = nil, want error")
	}

	p.drive(true)
	level, err := p.Read()
	if err != nil || !level {
		t.Fatalf("Read() = %v, %v, want true, nil", level, err)
	}
	p.drive(false)
	if level, _ := p.Read(); level {
		t.Fatalf("Read() after release = true, want false")
	}
}

func TestVirtualPinConfigureCaps(t *testing.T) {
	p := newVirtualPin("BTN0", GPIOCapInput)
	if err := p.Configure(GPIOModeOutput, GPIOPullNone); err == nil {
		t.Fatalf("Configure(output) error = nil, want error")
	}
	if err := p.Configure(GPIOModeInput, GPIOPullUp); err == nil {
		t.Fatalf("Configure(pull-up) error = nil, want error")
	}
}

func TestLEDPinForwards(t *testing.T) {
	led := &countLED{}
	p := newLEDPin("LED", led)
	if err := p.Write(true); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := p.Write(false); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if led.high != 1 || led.low != 1 {
		t.Fatalf("led high, low = %d, %d, want 1, 1", led.high, led.low)
	}
}

func TestButtonKey(t *testing.T) {
	if n, ok := ButtonKey(KeyF3); !ok || n != 2 {
		t.Fatalf("ButtonKey(F3) = %d, %v, want 2, true", n, ok)
	}
	if _, ok := ButtonKey(KeyEnter); ok {
		t.Fatalf("ButtonKey(Enter) ok = true, want false")
	}
}

type countLED struct{ high, low int }

func (l *countLED) High() { l.high++ }
func (l *countLED) Low()  { l.low++ }
