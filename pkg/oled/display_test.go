package oled

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/itohio/gofreq/pkg/glyph"
	"github.com/itohio/gofreq/pkg/meter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder logs pin levels and transmitted bytes in order.
type recorder struct {
	events []string
	fail   error
}

type recPin struct {
	r    *recorder
	name string
}

func (p recPin) High() { p.r.events = append(p.r.events, p.name+"+") }
func (p recPin) Low()  { p.r.events = append(p.r.events, p.name+"-") }

func (r *recorder) Transmit(b byte) error {
	if r.fail != nil {
		return r.fail
	}
	r.events = append(r.events, fmt.Sprintf("%02X", b))
	return nil
}

func (r *recorder) display() *Display {
	d := New(Config{
		Port:  r,
		CS:    recPin{r, "cs"},
		DC:    recPin{r, "dc"},
		RST:   recPin{r, "rst"},
		Sleep: func(time.Duration) {},
	})
	r.events = nil
	return d
}

func newPanelDisplay(p *Panel) *Display {
	return New(Config{
		Port:  p,
		CS:    p.CS(),
		DC:    p.DC(),
		RST:   p.RST(),
		Sleep: func(time.Duration) {},
	})
}

func TestCommandFraming(t *testing.T) {
	r := &recorder{}
	d := r.display()

	require.NoError(t, d.Command(0xB1))
	assert.Equal(t, []string{"cs+", "dc-", "cs-", "B1", "cs+"}, r.events)
}

func TestDataFraming(t *testing.T) {
	r := &recorder{}
	d := r.display()

	require.NoError(t, d.Data(0x7F))
	assert.Equal(t, []string{"cs+", "dc+", "cs-", "7F", "cs+"}, r.events)
}

func TestFormatFrame(t *testing.T) {
	tests := []struct {
		name string
		snap meter.Snapshot
		want [2]string
	}{
		{"zero", meter.Snapshot{}, [2]string{"R:     0 Ohms", "F:     0 Hz"}},
		{"typical", meter.Snapshot{Derived: 2500, Frequency: 48000}, [2]string{"R:  2500 Ohms", "F: 48000 Hz"}},
		{"wide", meter.Snapshot{Derived: 123456, Frequency: 1234567}, [2]string{"R: 123456 Ohms", "F: 1234567 Hz"}},
		{"truncated", meter.Snapshot{Derived: 4294967295, Frequency: 4294967295}, [2]string{"R: 4294967295 Oh", "F: 4294967295 Hz"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFrame(tt.snap))
		})
	}
}

func TestFormatFrame_MatchesPrintf(t *testing.T) {
	for _, v := range []uint32{0, 7, 42, 999, 1000, 65535, 99999} {
		f := FormatFrame(meter.Snapshot{Derived: v, Frequency: v})
		assert.Equal(t, fmt.Sprintf("R: %5d Ohms", v), f[0])
		assert.Equal(t, fmt.Sprintf("F: %5d Hz", v), f[1])
	}
}

func TestWriteLine_Stream(t *testing.T) {
	r := &recorder{}
	d := r.display()

	require.NoError(t, d.WriteLine(1, []byte("Hi")))

	var bytes []string
	for _, e := range r.events {
		if len(e) == 2 {
			bytes = append(bytes, e)
		}
	}
	want := []string{"B1", "02", "10"}
	for _, c := range "Hi" {
		for _, col := range glyph.Lookup(byte(c)) {
			want = append(want, fmt.Sprintf("%02X", col))
		}
	}
	assert.Equal(t, want, bytes)
}

func TestWriteLine_Truncates(t *testing.T) {
	p := NewPanel()
	d := newPanelDisplay(p)

	require.NoError(t, d.WriteLine(2, []byte("0123456789ABCDEFGHIJ")))
	commands, data, _ := p.Counts()
	assert.Equal(t, 3, commands)
	assert.Equal(t, MaxLineChars*glyph.Width, data)
	assert.Equal(t, "0123456789ABCDEF", p.Text(2))
}

func TestRefresh_ByteCount(t *testing.T) {
	p := NewPanel()
	d := newPanelDisplay(p)

	require.NoError(t, d.Refresh(meter.Snapshot{Derived: 2500, Frequency: 48000}))
	commands, data, dropped := p.Counts()
	assert.Equal(t, 6, commands)
	assert.Equal(t, (len("R:  2500 Ohms")+len("F: 48000 Hz"))*glyph.Width, data)
	assert.Zero(t, dropped)
}

func TestRefresh_Text(t *testing.T) {
	p := NewPanel()
	d := newPanelDisplay(p)
	require.NoError(t, d.Configure())

	require.NoError(t, d.Refresh(meter.Snapshot{Derived: 2500, Frequency: 48000}))
	assert.Equal(t, "R:  2500 Ohms   ", p.Text(0))
	assert.Equal(t, "F: 48000 Hz     ", p.Text(1))
	assert.Equal(t, "                ", p.Text(2))
}

func TestRefresh_Idempotent(t *testing.T) {
	snap := meter.Snapshot{Derived: 1234, Frequency: 777}

	r := &recorder{}
	d := r.display()
	require.NoError(t, d.Refresh(snap))
	first := append([]string(nil), r.events...)
	r.events = nil
	require.NoError(t, d.Refresh(snap))
	assert.Equal(t, first, r.events)

	p := NewPanel()
	pd := newPanelDisplay(p)
	require.NoError(t, pd.Refresh(snap))
	img := p.Image()
	require.NoError(t, pd.Refresh(snap))
	assert.Equal(t, img.Pix, p.Image().Pix)
}

func TestRefresh_PageOrder(t *testing.T) {
	r := &recorder{}
	d := r.display()
	require.NoError(t, d.Refresh(meter.Snapshot{}))

	var pages []string
	for _, e := range r.events {
		if e == "B0" || e == "B1" {
			pages = append(pages, e)
		}
	}
	assert.Equal(t, []string{"B0", "B1"}, pages)
}

func TestRefresh_StopsOnError(t *testing.T) {
	r := &recorder{}
	d := r.display()
	r.fail = fmt.Errorf("oled: %w", meter.ErrBusTimeout)

	err := d.Refresh(meter.Snapshot{})
	require.Error(t, err)
	assert.ErrorIs(t, err, meter.ErrBusTimeout)
	assert.Equal(t, "cs+", r.events[len(r.events)-1], "chip select is released")
}

func TestConfigure(t *testing.T) {
	p := NewPanel()
	d := newPanelDisplay(p)

	require.NoError(t, d.Configure())
	assert.True(t, p.On())

	commands, data, dropped := p.Counts()
	assert.Equal(t, len(InitSequence)+Pages*3, commands)
	assert.Equal(t, Pages*Columns, data)
	assert.Zero(t, dropped)
	for page := range Pages {
		assert.Equal(t, "                ", p.Text(page))
	}
}

func TestConfigure_ClearsPreviousContent(t *testing.T) {
	p := NewPanel()
	d := newPanelDisplay(p)
	require.NoError(t, d.Refresh(meter.Snapshot{Derived: 1, Frequency: 2}))
	require.NotEqual(t, byte(0), p.Column(0, 0))

	require.NoError(t, d.Configure())
	for page := range Pages {
		for x := range Columns - ColumnLow {
			assert.Zero(t, p.Column(page, x))
		}
	}
}

func TestConfigure_ResetPulse(t *testing.T) {
	r := &recorder{}
	d := r.display()
	require.NoError(t, d.Configure())

	assert.Equal(t, []string{"rst+", "rst-", "rst+"}, r.events[:3])
	assert.Equal(t, []string{"cs+", "dc-", "cs-", "AE", "cs+"}, r.events[3:8])
}

func TestConfigure_PropagatesError(t *testing.T) {
	r := &recorder{fail: errors.New("bus")}
	d := r.display()
	assert.EqualError(t, d.Configure(), "bus")
}

func TestPanel_DropsWhenDeselected(t *testing.T) {
	p := NewPanel()
	require.NoError(t, p.Transmit(0xAF))
	_, _, dropped := p.Counts()
	assert.Equal(t, 1, dropped)
	assert.False(t, p.On())
}

func TestPanel_Image(t *testing.T) {
	p := NewPanel()
	d := newPanelDisplay(p)
	require.NoError(t, d.WriteLine(0, []byte("1")))

	img := p.Image()
	assert.Equal(t, Columns, img.Bounds().Dx())
	assert.Equal(t, Pages*8, img.Bounds().Dy())

	g := glyph.Lookup('1')
	for x := range glyph.Width {
		for y := range 8 {
			lit := g[x]&(1<<y) != 0
			assert.Equal(t, lit, img.GrayAt(x, y).Y == 0xFF, "pixel %d,%d", x, y)
		}
	}
}
