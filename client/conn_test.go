package client_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/luma/sci/client"
	"github.com/luma/sci/protocol"
)

var _ = Describe("Conn", func() {
	var ctx context.Context

	hex := protocol.Config{Format: protocol.FormatHex, MaxFrameSize: protocol.DefaultMaxFrameSize}
	decimal := protocol.Config{Format: protocol.FormatDecimal, MaxFrameSize: protocol.DefaultMaxFrameSize}

	newConn := func(device *fakeDevice, cfg protocol.Config) *client.Conn {
		log, err := zap.NewDevelopment()
		Expect(err).To(Succeed())

		return client.New(device, client.Options{Config: cfg, Log: log})
	}

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("GetValue()", func() {
		It("returns the value typed per the parameter", func() {
			device := newScriptedDevice("1A?ACK;FF")
			conn := newConn(device, hex)

			v, err := conn.GetValue(ctx, protocol.Parameter{Number: 0x1A, Type: protocol.TypeI8})
			Expect(err).To(Succeed())
			Expect(v).To(Equal(protocol.IntValue(-1)))
			Expect(device.Writes()).To(Equal([]string{"1A?"}))
		})

		It("keeps decimal floats", func() {
			device := newScriptedDevice("26?ACK;12.5")
			conn := newConn(device, decimal)

			v, err := conn.GetValue(ctx, protocol.Parameter{Number: 26, Type: protocol.TypeF32})
			Expect(err).To(Succeed())
			Expect(v).To(Equal(protocol.FloatValue(12.5)))
			Expect(device.Writes()).To(Equal([]string{"26?"}))
		})

		It("returns a DeviceError carrying the device error code", func() {
			conn := newConn(newScriptedDevice("1A?ERR;5"), hex)

			_, err := conn.GetValue(ctx, protocol.Parameter{Number: 0x1A, Type: protocol.TypeU8})

			var deviceErr *client.DeviceError
			Expect(errors.As(err, &deviceErr)).To(BeTrue())
			Expect(deviceErr.Number).To(Equal(uint32(0x1A)))
			Expect(deviceErr.Code).To(Equal(protocol.IntValue(5)))
		})

		It("returns ErrDeviceRejected on NAK", func() {
			conn := newConn(newScriptedDevice("1A?NAK"), hex)

			_, err := conn.GetValue(ctx, protocol.Parameter{Number: 0x1A, Type: protocol.TypeU8})
			Expect(err).To(MatchError(client.ErrDeviceRejected))
		})

		It("returns ErrFrame on a reply without delimiters", func() {
			device := newScriptedDevice("1A?ACK;1")
			device.unframed = true
			conn := newConn(device, hex)

			_, err := conn.GetValue(ctx, protocol.Parameter{Number: 0x1A, Type: protocol.TypeU8})
			Expect(err).To(MatchError(protocol.ErrFrame))
		})

		It("releases the channel after a timeout", func() {
			device := newScriptedDevice("", "1A?ACK;2")
			conn := newConn(device, hex)
			param := protocol.Parameter{Number: 0x1A, Type: protocol.TypeU8}

			_, err := conn.GetValue(ctx, param)
			Expect(err).To(MatchError(client.ErrTimeout))

			v, err := conn.GetValue(ctx, param)
			Expect(err).To(Succeed())
			Expect(v).To(Equal(protocol.IntValue(2)))
		})

		It("does not send when the context is done", func() {
			device := newScriptedDevice("1A?ACK;2")
			conn := newConn(device, hex)

			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := conn.GetValue(cancelled, protocol.Parameter{Number: 0x1A, Type: protocol.TypeU8})
			Expect(err).To(MatchError(context.Canceled))
			Expect(device.Writes()).To(BeEmpty())
		})
	})

	Describe("SetValue()", func() {
		It("writes the value packed to the parameter width", func() {
			device := newScriptedDevice("1A!ACK")
			conn := newConn(device, hex)

			err := conn.SetValue(ctx, protocol.Parameter{Number: 0x1A, Type: protocol.TypeU16}, protocol.IntValue(1000))
			Expect(err).To(Succeed())
			Expect(device.Writes()).To(Equal([]string{"1A!3E8"}))
		})

		It("writes nothing when the value does not fit", func() {
			device := newScriptedDevice("1A!ACK")
			conn := newConn(device, hex)

			err := conn.SetValue(ctx, protocol.Parameter{Number: 0x1A, Type: protocol.TypeU8}, protocol.IntValue(1000))
			Expect(err).To(MatchError(protocol.ErrConfig))
			Expect(device.Writes()).To(BeEmpty())
		})

		It("returns ErrUnexpectedDesignator for anything but ACK", func() {
			conn := newConn(newScriptedDevice("1A!DAT"), hex)

			err := conn.SetValue(ctx, protocol.Parameter{Number: 0x1A, Type: protocol.TypeU8}, protocol.IntValue(1))
			Expect(err).To(MatchError(client.ErrUnexpectedDesignator))
			Expect(err).To(MatchError(protocol.ErrFormat))
		})
	})

	Describe("Invoke()", func() {
		fn := protocol.Function{
			Number:      3,
			ArgTypes:    []protocol.Datatype{protocol.TypeU8},
			ReturnTypes: []protocol.Datatype{protocol.TypeU8, protocol.TypeI8, protocol.TypeU16},
		}

		It("returns ErrConfig when params do not match the argument types", func() {
			device := newScriptedDevice("3:ACK")
			conn := newConn(device, hex)

			_, err := conn.Invoke(ctx, fn)
			Expect(err).To(MatchError(protocol.ErrConfig))
			Expect(device.Writes()).To(BeEmpty())
		})

		It("reassembles results spanning several frames", func() {
			device := newScriptedDevice("3:DAT;3;A", "3:FF,3E8", "3:ACK")
			conn := newConn(device, hex)

			values, err := conn.Invoke(ctx, fn, protocol.IntValue(1))
			Expect(err).To(Succeed())
			Expect(values).To(Equal([]protocol.Value{
				protocol.IntValue(10),
				protocol.IntValue(-1),
				protocol.IntValue(1000),
			}))

			Expect(device.Writes()).To(Equal([]string{"3:1", "3:"}))
		})

		It("reassembles decimal results", func() {
			fn := protocol.Function{
				Number:      3,
				ReturnTypes: []protocol.Datatype{protocol.TypeI16, protocol.TypeF32},
			}

			device := newScriptedDevice("3:DAT;2;-7.9", "3:0.5")
			conn := newConn(device, decimal)

			values, err := conn.Invoke(ctx, fn)
			Expect(err).To(Succeed())
			Expect(values).To(Equal([]protocol.Value{protocol.IntValue(-7), protocol.FloatValue(0.5)}))
		})

		It("stops at the first ERR", func() {
			device := newScriptedDevice("3:DAT;3;A", "3:ERR;7", "3:B,C")
			conn := newConn(device, hex)

			_, err := conn.Invoke(ctx, fn, protocol.IntValue(1))

			var deviceErr *client.DeviceError
			Expect(errors.As(err, &deviceErr)).To(BeTrue())
			Expect(deviceErr.Code).To(Equal(protocol.IntValue(7)))
			Expect(device.Writes()).To(HaveLen(2))
		})

		It("returns ErrDeviceRejected on NAK", func() {
			conn := newConn(newScriptedDevice("3:NAK"), hex)

			_, err := conn.Invoke(ctx, fn, protocol.IntValue(1))
			Expect(err).To(MatchError(client.ErrDeviceRejected))
		})

		It("returns no values on a bare ACK", func() {
			conn := newConn(newScriptedDevice("3:ACK"), hex)

			values, err := conn.Invoke(ctx, fn, protocol.IntValue(1))
			Expect(err).To(Succeed())
			Expect(values).To(BeEmpty())
		})

		It("reads frames with an unknown designator as data and keeps going", func() {
			device := newScriptedDevice("3:XYZ;3;A", "3:B,C")
			conn := newConn(device, hex)

			values, err := conn.Invoke(ctx, fn, protocol.IntValue(1))
			Expect(err).To(Succeed())
			Expect(values).To(Equal([]protocol.Value{protocol.IntValue(10), protocol.IntValue(11), protocol.IntValue(12)}))
			Expect(device.Writes()).To(Equal([]string{"3:1", "3:"}))
		})

		It("returns ErrNoProgress for an unknown designator without data", func() {
			conn := newConn(newScriptedDevice("3:XYZ"), hex)

			_, err := conn.Invoke(ctx, fn, protocol.IntValue(1))
			Expect(err).To(MatchError(client.ErrNoProgress))
		})

		It("returns ErrNoProgress when a data frame carries nothing", func() {
			conn := newConn(newScriptedDevice("3:DAT;3"), hex)

			_, err := conn.Invoke(ctx, fn, protocol.IntValue(1))
			Expect(err).To(MatchError(client.ErrNoProgress))
		})

		It("returns ErrTooManyValues when the device sends more than declared", func() {
			conn := newConn(newScriptedDevice("3:DAT;4;1,2,3,4"), hex)

			_, err := conn.Invoke(ctx, fn, protocol.IntValue(1))
			Expect(err).To(MatchError(client.ErrTooManyValues))
		})

		It("returns ErrTimeout when a continuation frame never arrives", func() {
			device := newScriptedDevice("3:DAT;3;A", "", "3:ACK")
			conn := newConn(device, hex)

			_, err := conn.Invoke(ctx, fn, protocol.IntValue(1))
			Expect(err).To(MatchError(client.ErrTimeout))

			values, err := conn.Invoke(ctx, fn, protocol.IntValue(1))
			Expect(err).To(Succeed())
			Expect(values).To(BeEmpty())
		})
	})

	Describe("RequestUpstream()", func() {
		fn := protocol.Function{Number: 4}

		It("collects the announced number of bytes", func() {
			device := newScriptedDevice("4:UPS;5", "4>010203", "4>0405")
			conn := newConn(device, hex)

			data, err := conn.RequestUpstream(ctx, fn)
			Expect(err).To(Succeed())
			Expect(data).To(Equal([]byte{1, 2, 3, 4, 5}))
			Expect(device.Writes()).To(Equal([]string{"4:", "4>", "4>"}))
		})

		It("returns ErrNoUpstream when the device does not announce one", func() {
			conn := newConn(newScriptedDevice("4:ACK"), hex)

			_, err := conn.RequestUpstream(ctx, fn)
			Expect(err).To(MatchError(client.ErrNoUpstream))
		})

		It("does not trust the announced length before data arrives", func() {
			device := newScriptedDevice("4:UPS;FFFFFFFF", "4>0102")
			conn := newConn(device, hex)

			_, err := conn.RequestUpstream(ctx, fn)
			Expect(err).To(MatchError(client.ErrTimeout))
			Expect(device.Writes()).To(Equal([]string{"4:", "4>", "4>"}))
		})

		It("returns ErrDeviceRejected when polling is refused", func() {
			conn := newConn(newScriptedDevice("4:UPS;5", "4>NAK"), hex)

			_, err := conn.RequestUpstream(ctx, fn)
			Expect(err).To(MatchError(client.ErrDeviceRejected))
		})
	})

	Describe("concurrency", func() {
		It("never interleaves invoke, get and set exchanges", func() {
			device := newDevice(func(req string) string {
				switch {
				case strings.HasSuffix(req, "?"):
					return req + "ACK;1"
				case strings.Contains(req, "!"):
					return strings.SplitN(req, "!", 2)[0] + "!ACK"
				case strings.HasSuffix(req, ":"):
					return req + "B"
				default:
					return strings.SplitN(req, ":", 2)[0] + ":DAT;2;A"
				}
			})
			device.latency = time.Millisecond

			conn := client.New(device, client.Options{
				Config:     hex,
				FrameDelay: time.Millisecond,
			})

			var wg sync.WaitGroup

			for n := 1; n <= 12; n++ {
				wg.Add(1)

				go func(n uint32) {
					defer GinkgoRecover()
					defer wg.Done()

					switch n % 3 {
					case 0:
						values, err := conn.Invoke(ctx, protocol.Function{
							Number:      n,
							ArgTypes:    []protocol.Datatype{protocol.TypeU8},
							ReturnTypes: []protocol.Datatype{protocol.TypeU8, protocol.TypeU8},
						}, protocol.IntValue(1))
						Expect(err).To(Succeed())
						Expect(values).To(HaveLen(2))

					case 1:
						v, err := conn.GetValue(ctx, protocol.Parameter{Number: n, Type: protocol.TypeU8})
						Expect(err).To(Succeed())
						Expect(v).To(Equal(protocol.IntValue(1)))

					default:
						Expect(conn.SetValue(ctx, protocol.Parameter{Number: n, Type: protocol.TypeU8}, protocol.IntValue(1))).
							To(Succeed())
					}
				}(uint32(n))
			}

			wg.Wait()

			writes := device.Writes()
			Expect(writes).To(HaveLen(16))

			for i := 0; i < len(writes); i++ {
				if number := strings.TrimSuffix(writes[i], ":1"); number != writes[i] {
					Expect(i+1).To(BeNumerically("<", len(writes)))
					Expect(writes[i+1]).To(Equal(number + ":"))
					i++
					continue
				}

				Expect(writes[i]).To(MatchRegexp(`^[0-9A-F]+(\?|!1)$`))
			}
		})

		It("never interleaves the frames of two exchanges", func() {
			device := newDevice(func(req string) string {
				parts := strings.SplitN(req, ":", 2)

				if parts[1] == "" {
					return parts[0] + ":B"
				}

				return parts[0] + ":DAT;2;A"
			})
			device.latency = time.Millisecond

			conn := client.New(device, client.Options{
				Config:     hex,
				FrameDelay: time.Millisecond,
			})

			var wg sync.WaitGroup

			for n := 1; n <= 8; n++ {
				wg.Add(1)

				go func(n uint32) {
					defer GinkgoRecover()
					defer wg.Done()

					values, err := conn.Invoke(ctx, protocol.Function{
						Number:      n,
						ArgTypes:    []protocol.Datatype{protocol.TypeU8},
						ReturnTypes: []protocol.Datatype{protocol.TypeU8, protocol.TypeU8},
					}, protocol.IntValue(1))

					Expect(err).To(Succeed())
					Expect(values).To(Equal([]protocol.Value{protocol.IntValue(10), protocol.IntValue(11)}))
				}(uint32(n))
			}

			wg.Wait()

			writes := device.Writes()
			Expect(writes).To(HaveLen(16))

			for i := 0; i < len(writes); i += 2 {
				number := strings.TrimSuffix(writes[i], ":1")
				Expect(writes[i]).To(Equal(fmt.Sprintf("%s:1", number)))
				Expect(writes[i+1]).To(Equal(fmt.Sprintf("%s:", number)))
			}
		})
	})
})
