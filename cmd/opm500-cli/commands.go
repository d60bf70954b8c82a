package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/artifex-eng/opm500/internal/config"
	"github.com/artifex-eng/opm500/internal/opm"
	"github.com/artifex-eng/opm500/internal/picker"
	"github.com/artifex-eng/opm500/internal/transport"
	"github.com/artifex-eng/opm500/internal/ui"
)

// Command flags
var (
	portFlag   string
	formatFlag string

	unitFlag       string
	wavelengthFlag int
	gainFlag       string
	bandwidthFlag  string
	filterFlag     float64
	apertureFlag   float64
	invertFlag     bool
	rawFlag        bool
	countFlag      int
	intervalFlag   time.Duration

	zeroResetFlag bool
)

func init() {
	// Common flags for instrument commands (persistent on root)
	rootCmd.PersistentFlags().StringVar(&portFlag, "port", "", "Serial port or device descriptor (skips the picker)")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "text", "Output format: text or json")

	// Add subcommands directly to root
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(measureCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(zeroCmd)
	rootCmd.AddCommand(nicknameCmd)
}

// wantJSON reports whether --format selected JSON output
func wantJSON() (bool, error) {
	switch formatFlag {
	case "", "text":
		return false, nil
	case "json":
		return true, nil
	}
	return false, fmt.Errorf("unrecognized format %q (use text or json)", formatFlag)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// scanCmd lists attached instruments
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan serial ports for attached instruments",
	Long: `Scan the USB-serial adapters for attached OPM500 instruments.

This command enumerates the serial ports and displays every adapter
whose USB product string identifies an OPM500, along with any nickname
stored in the local configuration.`,
	Example: `  # List attached instruments
  opm500-cli scan`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	asJSON, err := wantJSON()
	if err != nil {
		return err
	}

	descriptors, err := opm.ListDescriptors()
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	registry, regErr := config.LoadRegistry()

	if asJSON {
		type entry struct {
			Descriptor string `json:"descriptor"`
			Serial     string `json:"serial,omitempty"`
			Nickname   string `json:"nickname,omitempty"`
		}
		entries := make([]entry, 0, len(descriptors))
		for _, desc := range descriptors {
			e := entry{Descriptor: desc, Serial: serialOf(desc)}
			if regErr == nil {
				if inst := registry.GetInstrument(e.Serial); inst != nil {
					e.Nickname = inst.Nickname
				}
			}
			entries = append(entries, e)
		}
		return printJSON(entries)
	}

	if len(descriptors) == 0 {
		fmt.Println("No instruments found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Check that the meter is powered on")
		fmt.Println("  - Check that the USB cable is plugged in")
		fmt.Println("  - Check your permissions on the serial device (dialout group)")
		fmt.Println("  - Use --port to specify a serial port manually")
		return nil
	}

	fmt.Printf("Found %d instrument(s):\n\n", len(descriptors))
	for i, desc := range descriptors {
		fmt.Printf("%d. %s\n", i+1, desc)
		if regErr == nil {
			if inst := registry.GetInstrument(serialOf(desc)); inst != nil && inst.Nickname != "" {
				fmt.Printf("   Nickname: %s\n", inst.Nickname)
			}
		}
	}

	fmt.Println("\nUse 'opm500-cli info --port <descriptor>' to view instrument details")
	return nil
}

// infoCmd displays instrument identity and configuration
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show instrument identity and configuration",
	Long: `Connect to an instrument and display its identity block and the
active measurement configuration: firmware version, serial number,
detector wavelength range, unit, wavelength, bandwidth, gain, polarity,
filter factor and aperture.`,
	Example: `  # Show details with the interactive picker
  opm500-cli info

  # Show details for a specific port
  opm500-cli info --port /dev/ttyUSB0`,
	RunE: runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	asJSON, err := wantJSON()
	if err != nil {
		return err
	}

	return withDevice(func(device *opm.Device, target string) error {
		identity := device.Identity()
		cfg := device.Configuration()

		if asJSON {
			return printJSON(struct {
				SerialNumber     string  `json:"serial_number"`
				FirmwareVersion  string  `json:"firmware_version"`
				ManufactureDate  string  `json:"manufacture_date"`
				MinWavelengthNM  int     `json:"min_wavelength_nm"`
				MaxWavelengthNM  int     `json:"max_wavelength_nm"`
				Nickname         string  `json:"nickname,omitempty"`
				Port             string  `json:"port"`
				Unit             string  `json:"unit"`
				WavelengthNM     int     `json:"wavelength_nm"`
				CorrectionFactor float64 `json:"correction_factor"`
				Bandwidth        string  `json:"bandwidth"`
				Gain             string  `json:"gain"`
				PolarityInverted bool    `json:"polarity_inverted"`
				FilterFactor     float64 `json:"filter_factor"`
				ApertureMM       float64 `json:"aperture_mm"`
			}{
				SerialNumber:     identity.SerialNumber,
				FirmwareVersion:  identity.FirmwareVersion,
				ManufactureDate:  identity.ManufactureDate,
				MinWavelengthNM:  identity.MinWavelengthNM,
				MaxWavelengthNM:  identity.MaxWavelengthNM,
				Nickname:         nicknameOf(identity.SerialNumber),
				Port:             target,
				Unit:             cfg.Unit.String(),
				WavelengthNM:     cfg.WavelengthNM,
				CorrectionFactor: cfg.CorrectionFactor,
				Bandwidth:        cfg.Bandwidth.String(),
				Gain:             cfg.Gain.String(),
				PolarityInverted: cfg.PolarityInverted,
				FilterFactor:     cfg.FilterFactor,
				ApertureMM:       cfg.ApertureMM,
			})
		}

		card := ui.NewInstrumentCard(identity, cfg, target)
		card.Nickname = nicknameOf(identity.SerialNumber)
		fmt.Println(card.Render())
		return nil
	})
}

// measureCmd takes calibrated readings
var measureCmd = &cobra.Command{
	Use:   "measure",
	Short: "Take calibrated readings",
	Long: `Connect to an instrument, apply the measurement setup, and take one
or more calibrated readings.

Flags take precedence; an unset flag falls back to the setup stored for
the instrument, then to the configured preferences.

Units: nA, µA (uA), mA, A, nW, µW (uW), mW, W, nW/cm², µW/cm² (uW/cm2),
mW/cm², W/cm², dBm. Gain levels: x1 .. x100000, or auto. Bandwidths:
10kHz, 1kHz, 100Hz, 10Hz.`,
	Example: `  # One reading in the default unit
  opm500-cli measure --port /dev/ttyUSB0

  # Optical power at 780 nm with automatic gain
  opm500-cli measure --port /dev/ttyUSB0 --unit uW --wavelength 780 --gain auto

  # A ten-reading series, one per second
  opm500-cli measure --port /dev/ttyUSB0 --unit dBm --count 10 --interval 1s

  # The raw instrument token, unconverted
  opm500-cli measure --port /dev/ttyUSB0 --raw`,
	RunE: runMeasure,
}

func init() {
	measureCmd.Flags().StringVar(&unitFlag, "unit", "", "Display unit (default µA)")
	measureCmd.Flags().IntVar(&wavelengthFlag, "wavelength", 0, "Measurement wavelength in nm (default 660)")
	measureCmd.Flags().StringVar(&gainFlag, "gain", "", "Gain level x1..x100000, or auto")
	measureCmd.Flags().StringVar(&bandwidthFlag, "bandwidth", "", "Analog bandwidth (10kHz, 1kHz, 100Hz, 10Hz)")
	measureCmd.Flags().Float64Var(&filterFlag, "filter", 0, "External filter attenuation factor")
	measureCmd.Flags().Float64Var(&apertureFlag, "aperture", 0, "Aperture diameter in mm for irradiance units")
	measureCmd.Flags().BoolVar(&invertFlag, "invert-polarity", false, "Invert the input polarity")
	measureCmd.Flags().BoolVar(&rawFlag, "raw", false, "Print the raw instrument token without conversion")
	measureCmd.Flags().IntVar(&countFlag, "count", 1, "Number of readings to take")
	measureCmd.Flags().DurationVar(&intervalFlag, "interval", time.Second, "Delay between readings when --count > 1")
}

func runMeasure(cmd *cobra.Command, args []string) error {
	if countFlag < 1 {
		return fmt.Errorf("--count must be at least 1, got %d", countFlag)
	}

	asJSON, err := wantJSON()
	if err != nil {
		return err
	}

	return withDevice(func(device *opm.Device, target string) error {
		identity := device.Identity()

		setup := measureSetup{
			Unit:         unitFlag,
			WavelengthNM: wavelengthFlag,
			FilterFactor: filterFlag,
			ApertureMM:   apertureFlag,
		}
		if registry, err := config.LoadRegistry(); err == nil {
			setup = resolveSetup(setup, registry.GetInstrument(identity.SerialNumber), registry.Preferences)
		}
		if err := applySetup(device, setup); err != nil {
			return err
		}

		for i := 0; i < countFlag; i++ {
			if i > 0 {
				time.Sleep(intervalFlag)
			}

			if rawFlag {
				raw, err := device.RawMeasurement()
				if err != nil {
					return fmt.Errorf("measurement failed: %w", err)
				}
				if asJSON {
					if err := printJSON(struct {
						Raw  string    `json:"raw"`
						Time time.Time `json:"time"`
					}{raw, time.Now()}); err != nil {
						return err
					}
				} else {
					fmt.Println(raw)
				}
				continue
			}

			m, err := device.Measure()
			if err != nil {
				return fmt.Errorf("measurement failed: %w", err)
			}
			switch {
			case asJSON:
				if err := printJSON(struct {
					Value float64   `json:"value"`
					Unit  string    `json:"unit"`
					Time  time.Time `json:"time"`
				}{m.Value, m.Unit.String(), time.Now()}); err != nil {
					return err
				}
			case countFlag > 1:
				fmt.Println(ui.RenderTimestampedMeasurement(time.Now(), m))
			default:
				fmt.Println(ui.RenderMeasurement(m))
			}
		}

		rememberSetup(identity.SerialNumber, device.Configuration())
		return nil
	})
}

// measureSetup is the effective measurement setup for one run, resolved
// from the flags, the instrument's stored setup, and the preferences.
// Zero values mean "keep the connection default".
type measureSetup struct {
	Unit         string
	WavelengthNM int
	FilterFactor float64
	ApertureMM   float64
}

// resolveSetup fills the unset fields of a flag-given setup from the
// instrument's stored setup, then from the global preferences. Flags
// always win; the instrument entry and the preferences may be nil.
func resolveSetup(flags measureSetup, inst *config.Instrument, prefs *config.Preferences) measureSetup {
	out := flags

	if inst != nil && inst.Setup != nil {
		if out.Unit == "" {
			out.Unit = inst.Setup.Unit
		}
		if out.WavelengthNM == 0 {
			out.WavelengthNM = inst.Setup.WavelengthNM
		}
		if out.FilterFactor == 0 {
			out.FilterFactor = inst.Setup.FilterFactor
		}
		if out.ApertureMM == 0 {
			out.ApertureMM = inst.Setup.ApertureMM
		}
	}

	if prefs != nil {
		if out.Unit == "" {
			out.Unit = prefs.DefaultUnit
		}
		if out.WavelengthNM == 0 {
			out.WavelengthNM = prefs.DefaultWavelengthNM
		}
	}

	return out
}

// applySetup pushes the resolved measurement setup and the remaining
// flag-only parameters to the device. Zero values keep the connection
// defaults.
func applySetup(device *opm.Device, setup measureSetup) error {
	if setup.Unit != "" {
		unit, err := opm.ParseUnit(setup.Unit)
		if err != nil {
			return err
		}
		if err := device.SetUnit(unit); err != nil {
			return err
		}
	}

	if setup.WavelengthNM != 0 {
		if err := device.SetWavelength(setup.WavelengthNM); err != nil {
			return fmt.Errorf("wavelength: %w", err)
		}
	}

	if bandwidthFlag != "" {
		bandwidth, err := parseBandwidthFlag(bandwidthFlag)
		if err != nil {
			return err
		}
		if err := device.SetBandwidth(bandwidth); err != nil {
			return fmt.Errorf("bandwidth: %w", err)
		}
	}

	if gainFlag != "" {
		gain, err := opm.ParseGain(gainFlag)
		if err != nil {
			return err
		}
		if err := device.SetGain(gain); err != nil {
			return fmt.Errorf("gain: %w", err)
		}
	}

	if invertFlag {
		if err := device.SetPolarity(true); err != nil {
			return fmt.Errorf("polarity: %w", err)
		}
	}

	if setup.FilterFactor != 0 {
		if err := device.SetFilterFactor(setup.FilterFactor); err != nil {
			return err
		}
	}

	if setup.ApertureMM != 0 {
		if err := device.SetApertureMM(setup.ApertureMM); err != nil {
			return err
		}
	}

	return nil
}

// parseBandwidthFlag accepts the compact spellings used on the command
// line ("10kHz") as well as the display forms ("10 kHz").
func parseBandwidthFlag(s string) (opm.Bandwidth, error) {
	compact := strings.ToLower(strings.ReplaceAll(s, " ", ""))
	switch compact {
	case "10khz":
		return opm.Bandwidth10kHz, nil
	case "1khz":
		return opm.Bandwidth1kHz, nil
	case "100hz":
		return opm.Bandwidth100Hz, nil
	case "10hz":
		return opm.Bandwidth10Hz, nil
	}
	return 0, fmt.Errorf("unrecognized bandwidth %q (use 10kHz, 1kHz, 100Hz or 10Hz)", s)
}

// setCmd applies single configuration values to the instrument
var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Apply a configuration value to the instrument",
	Long: `Connect to an instrument and apply one configuration value.

The instrument holds its configuration in volatile memory only; a value
set here lasts until the meter is powered off.`,
}

func init() {
	setCmd.AddCommand(setWavelengthCmd)
	setCmd.AddCommand(setGainCmd)
	setCmd.AddCommand(setBandwidthCmd)
	setCmd.AddCommand(setPolarityCmd)
}

var setWavelengthCmd = &cobra.Command{
	Use:     "wavelength <nm>",
	Short:   "Set the measurement wavelength",
	Example: `  opm500-cli set wavelength 780 --port /dev/ttyUSB0`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSetWavelength,
}

func runSetWavelength(cmd *cobra.Command, args []string) error {
	nm, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("wavelength must be an integer nm value, got %q", args[0])
	}

	return withDevice(func(device *opm.Device, _ string) error {
		if err := device.SetWavelength(nm); err != nil {
			return fmt.Errorf("wavelength: %w", err)
		}
		cfg := device.Configuration()
		fmt.Printf("✓ Wavelength %d nm (correction factor %g)\n", cfg.WavelengthNM, cfg.CorrectionFactor)
		return nil
	})
}

var setGainCmd = &cobra.Command{
	Use:     "gain <level>",
	Short:   "Set the gain level (x1 .. x100000, or auto)",
	Example: `  opm500-cli set gain x1000 --port /dev/ttyUSB0`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSetGain,
}

func runSetGain(cmd *cobra.Command, args []string) error {
	gain, err := opm.ParseGain(args[0])
	if err != nil {
		return err
	}

	return withDevice(func(device *opm.Device, _ string) error {
		if err := device.SetGain(gain); err != nil {
			return fmt.Errorf("gain: %w", err)
		}
		fmt.Printf("✓ Gain %s\n", device.Configuration().Gain)
		return nil
	})
}

var setBandwidthCmd = &cobra.Command{
	Use:     "bandwidth <value>",
	Short:   "Set the analog bandwidth (10kHz, 1kHz, 100Hz, 10Hz)",
	Example: `  opm500-cli set bandwidth 100Hz --port /dev/ttyUSB0`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSetBandwidth,
}

func runSetBandwidth(cmd *cobra.Command, args []string) error {
	bandwidth, err := parseBandwidthFlag(args[0])
	if err != nil {
		return err
	}

	return withDevice(func(device *opm.Device, _ string) error {
		if err := device.SetBandwidth(bandwidth); err != nil {
			return fmt.Errorf("bandwidth: %w", err)
		}
		fmt.Printf("✓ Bandwidth %s\n", device.Configuration().Bandwidth)
		return nil
	})
}

var setPolarityCmd = &cobra.Command{
	Use:     "polarity <normal|inverted>",
	Short:   "Set the input polarity",
	Example: `  opm500-cli set polarity inverted --port /dev/ttyUSB0`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSetPolarity,
}

func runSetPolarity(cmd *cobra.Command, args []string) error {
	var inverted bool
	switch strings.ToLower(args[0]) {
	case "normal":
		inverted = false
	case "inverted":
		inverted = true
	default:
		return fmt.Errorf("polarity must be normal or inverted, got %q", args[0])
	}

	return withDevice(func(device *opm.Device, _ string) error {
		if err := device.SetPolarity(inverted); err != nil {
			return fmt.Errorf("polarity: %w", err)
		}
		fmt.Printf("✓ Polarity %s\n", args[0])
		return nil
	})
}

// zeroCmd performs offset calibration
var zeroCmd = &cobra.Command{
	Use:   "zero",
	Short: "Run offset calibration",
	Long: `Perform an offset calibration with the detector darkened.

The default calibration may report a reduced usable gain range when the
measured offset is large. With --reset the instrument discards the
stored offsets and restores the full gain range.`,
	Example: `  # Auto-zero with the detector darkened
  opm500-cli zero --port /dev/ttyUSB0

  # Discard stored offsets
  opm500-cli zero --port /dev/ttyUSB0 --reset`,
	RunE: runZero,
}

func init() {
	zeroCmd.Flags().BoolVar(&zeroResetFlag, "reset", false, "Discard stored offsets and restore the full gain range")
}

func runZero(cmd *cobra.Command, args []string) error {
	return withDevice(func(device *opm.Device, _ string) error {
		if zeroResetFlag {
			if err := device.AutoZeroReset(); err != nil {
				return fmt.Errorf("auto-zero reset failed: %w", err)
			}
			fmt.Println("✓ Offsets discarded, full gain range restored")
			return nil
		}

		if err := device.AutoZero(); err != nil {
			return fmt.Errorf("auto-zero failed: %w", err)
		}

		cfg := device.Configuration()
		if cfg.MaxGainLevel < int(opm.GainX100000) {
			fmt.Printf("✓ Auto-zero complete (usable gain limited to level %d)\n", cfg.MaxGainLevel)
		} else {
			fmt.Println("✓ Auto-zero complete")
		}
		return nil
	})
}

// nicknameCmd stores a nickname for an instrument in the local registry
var nicknameCmd = &cobra.Command{
	Use:   "nickname <serial> <name>",
	Short: "Store a nickname for an instrument",
	Long: `Store a user-defined nickname for an instrument in the local
configuration file, keyed by the instrument's serial number. The
nickname is shown by 'scan' and 'info'.`,
	Example: `  opm500-cli nickname 12345 "Bench meter"`,
	Args:    cobra.ExactArgs(2),
	RunE:    runNickname,
}

func runNickname(cmd *cobra.Command, args []string) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	registry.SetInstrumentNickname(args[0], args[1])
	if err := registry.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Printf("✓ Instrument %s is now %q\n", args[0], args[1])
	return nil
}

var connectTroubleshooting = []string{
	"Check that the meter is powered on",
	"Check that no other program holds the serial port",
	"Check your permissions on the serial device (dialout group)",
	"Run 'opm500-cli scan' to list attached instruments",
}

// withDevice connects to the resolved target, records the sighting in
// the registry, runs fn, and disconnects.
func withDevice(fn func(device *opm.Device, target string) error) error {
	target, err := resolveTarget()
	if err != nil {
		return err
	}

	device := opm.NewDevice()
	if err := device.Connect(target); err != nil {
		fmt.Println(ui.RenderFailure("Connection failed", err, connectTroubleshooting))
		return err
	}
	defer func() { _ = device.Disconnect() }()

	rememberInstrument(device.Identity().SerialNumber, target)
	return fn(device, target)
}

// resolveTarget picks the instrument to talk to: the --port flag if
// given, otherwise the interactive picker on a terminal.
func resolveTarget() (string, error) {
	if portFlag != "" {
		return portFlag, nil
	}

	if !ui.IsInteractive() {
		return "", fmt.Errorf("no --port given and stdout is not a terminal")
	}

	return picker.Run()
}

// serialOf extracts the serial number from a descriptor, or returns an
// empty string for raw port names.
func serialOf(descriptor string) string {
	serial, err := transport.SerialFromDescriptor(descriptor)
	if err != nil {
		return ""
	}
	return serial
}

// nicknameOf looks up the stored nickname for a serial number
func nicknameOf(serial string) string {
	if serial == "" {
		return ""
	}
	registry, err := config.LoadRegistry()
	if err != nil {
		return ""
	}
	if inst := registry.GetInstrument(serial); inst != nil {
		return inst.Nickname
	}
	return ""
}

// rememberInstrument records the port an instrument was last seen on
func rememberInstrument(serial, port string) {
	if serial == "" {
		return
	}
	registry, err := config.LoadRegistry()
	if err != nil {
		return
	}
	registry.UpdateInstrumentLastSeen(serial, port)
	_ = registry.Save()
}

// rememberSetup stores the last used measurement setup when the
// preference allows it
func rememberSetup(serial string, cfg opm.Config) {
	if serial == "" {
		return
	}
	registry, err := config.LoadRegistry()
	if err != nil || registry.Preferences == nil || !registry.Preferences.RememberSetup {
		return
	}
	registry.UpdateMeasurementSetup(serial, cfg.Unit.String(), cfg.WavelengthNM, cfg.FilterFactor, cfg.ApertureMM)
	_ = registry.Save()
}
