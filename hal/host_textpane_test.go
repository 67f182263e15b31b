//go:build !tinygo

package hal

import (
	"reflect"
	"testing"
)

func TestTextPaneSplitsLines(t *testing.T) {
	p := newTextPane(10)
	p.Write([]byte("Hello world! 0 \r\nHello"))
	p.Write([]byte(" again\nEnter: "))

	got := p.tail(10)
	want := []string{"Hello world! 0 ", "Hello again", "Enter: "}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tail() = %q, want %q", got, want)
	}
	if p.last() != "Hello again" {
		t.Fatalf("last() = %q, want %q", p.last(), "Hello again")
	}
}

func TestTextPaneKeepsMax(t *testing.T) {
	p := newTextPane(2)
	p.Write([]byte("a\nb\nc\n"))

	got := p.tail(5)
	want := []string{"b", "c", ""}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tail() = %q, want %q", got, want)
	}
	if got := p.tail(1); !reflect.DeepEqual(got, []string{""}) {
		t.Fatalf("tail(1) = %q, want one empty partial line", got)
	}
}
