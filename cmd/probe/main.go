// Probe is a diagnostic for the headless browser setup: it launches
// Chromium with the same flags the worker uses, loads a page, and
// reports timing. Run it on a new host before pointing the worker at
// real snapshot URLs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/rod/lib/utils"
)

func main() {
	var (
		target  = flag.String("url", "https://www.facebook.com/ads/library/", "URL to load")
		bin     = flag.String("bin", "", "Chromium binary path (optional)")
		timeout = flag.Duration("timeout", 30*time.Second, "navigation timeout")
	)
	flag.Parse()

	l := launcher.New().
		Headless(true).
		Set("no-sandbox").
		Set("disable-web-security")
	if *bin != "" {
		if utils.FileExists(*bin) {
			l = l.Bin(*bin)
		} else {
			log.Printf("binary %s not found, falling back to managed download", *bin)
		}
	}
	defer l.Cleanup()

	controlURL, err := l.Launch()
	if err != nil {
		log.Fatal("Failed to launch:", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		log.Fatal("Failed to connect:", err)
	}
	defer browser.Close()

	fmt.Println("Browser connected")

	page, err := browser.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		log.Fatal("Failed to create page:", err)
	}
	defer page.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fmt.Printf("Navigating to %s...\n", *target)
	start := time.Now()

	err = rod.Try(func() {
		page.Context(ctx).MustNavigate(*target).MustWaitLoad()
	})
	if err != nil {
		fmt.Printf("Failed after %v: %v\n", time.Since(start), err)
		return
	}

	fmt.Printf("Loaded in %v\n", time.Since(start))
}
