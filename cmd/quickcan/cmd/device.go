package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/sirupsen/logrus"

	"github.com/quickcan/goquickcan"
	"github.com/quickcan/goquickcan/pkg/frame"
)

var errNoPort = errors.New("no port selected, pass --port")

func serialConfig() quickcan.SerialConfig {
	return quickcan.SerialConfig{
		Port:     cfg.GetString(flagPort),
		Baudrate: cfg.GetInt(flagBaudrate),
	}
}

// openDriver opens the configured port. A port of * prints the available
// ports instead, "loopback" echoes everything sent.
func openDriver(ctx context.Context) (*quickcan.Driver, error) {
	sc := serialConfig()
	if sc.Port == "" || sc.Port == "*" {
		if err := printPorts(); err != nil {
			return nil, err
		}
		return nil, errNoPort
	}

	var d *quickcan.Driver
	err := retry.Do(func() error {
		var err error
		opts := []quickcan.Opts{
			quickcan.OptLogger(log.WithField("port", sc.Port)),
			quickcan.OptDebug(cfg.GetBool(flagDebug)),
		}
		if sc.Port == quickcan.LoopbackPort {
			d, err = quickcan.New(quickcan.NewLoopback(quickcan.DefaultReadTimeout), opts...)
			return err
		}
		d, err = quickcan.Open(sc, opts...)
		return err
	},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(250*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			log.Warnf("retry %d: %v", n+1, err)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	log.Debugf("opened %s at %d baud", sc.Port, sc.Baudrate)
	return d, nil
}

func openBus(ctx context.Context) (*quickcan.Bus, error) {
	d, err := openDriver(ctx)
	if err != nil {
		return nil, err
	}
	return quickcan.NewBus(d, quickcan.OptBusCommandHandler(logCommand)), nil
}

func logCommand(cmd frame.Command, f *frame.CANFrame) {
	log.WithFields(logrus.Fields{
		"cmd":  cmd.String(),
		"data": fmt.Sprintf("%X", f.Data),
	}).Info("adapter")
}
