package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/AbdulWasayUl/go-weather-chat/internal/config"
	"github.com/AbdulWasayUl/go-weather-chat/internal/logger"
	"github.com/AbdulWasayUl/go-weather-chat/services/chat"
	"github.com/AbdulWasayUl/go-weather-chat/services/weather"
)

const help = `Commands:
  /weather <place>  current conditions, next hours and the 5-day outlook
  /history          print the conversation so far
  /clear            start a new conversation
  /quit             exit
Anything else is sent to the assistant.`

func main() {
	logger.Init()
	cfg := config.Load()
	if err := cfg.Validate(false, true); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bot := chat.NewClient(cfg)
	var weatherSvc *weather.Service
	if cfg.WeatherAPIKey != "" {
		weatherSvc = weather.NewService(cfg)
	}

	fmt.Println(help)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit":
			return
		case line == "/clear":
			bot.Clear()
			fmt.Println("Conversation cleared.")
		case line == "/history":
			for _, m := range bot.History() {
				who := "Assistant"
				if m.IsUser {
					who = "You"
				}
				fmt.Printf("[%s] %s: %s\n", m.Timestamp.Format("15:04"), who, m.Text)
			}
		case strings.HasPrefix(line, "/weather"):
			place := strings.TrimSpace(strings.TrimPrefix(line, "/weather"))
			if weatherSvc == nil {
				fmt.Println("Weather lookups need OPENWEATHER_API_KEY.")
				continue
			}
			if place == "" {
				fmt.Println("Usage: /weather <place>")
				continue
			}
			printReport(ctx, weatherSvc, place)
		default:
			reply := bot.Send(ctx, line)
			if errors.Is(reply.Err, chat.ErrEmptyMessage) {
				continue
			}
			fmt.Println(reply.Text)
		}

		if ctx.Err() != nil {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		logger.Error("Reading input: %v", err)
	}
}

func printReport(ctx context.Context, svc *weather.Service, place string) {
	report, err := svc.FetchReport(ctx, place)
	if err != nil {
		fmt.Println(err)
		return
	}

	loc := report.Current.Location
	cur := report.Current.Current
	desc := ""
	if len(cur.WeatherDescriptions) > 0 {
		desc = cur.WeatherDescriptions[0]
	}
	fmt.Printf("%s, %s (%s)\n", loc.Name, loc.Country, loc.TimezoneID)
	fmt.Printf("  %d°C, feels like %d°C, %s\n", cur.Temperature, cur.FeelsLike, desc)
	fmt.Printf("  wind %d km/h %s, humidity %d%%, visibility %.1f km\n", cur.WindSpeed, cur.WindDir, cur.Humidity, cur.Visibility)

	fmt.Println("Next hours:")
	for _, h := range report.Hourly {
		fmt.Printf("  %s  %s %3d°C  %s\n", h.Time, h.Icon, h.Temp, h.Condition)
	}

	fmt.Println("Outlook:")
	for _, d := range report.Forecast.Days {
		fmt.Printf("  %s  %3d / %3d°C  %s\n", d.Date, d.MaxTempC, d.MinTempC, d.Condition.Text)
	}
}
