package weather

import (
	"time"
)

const (
	maxForecastDays = 5
	hourlySamples   = 8
)

// dayBucket is the set of forecast samples that share one location-local calendar date.
type dayBucket struct {
	date    string
	samples []forecastSample
}

// groupByDay buckets samples by their calendar date in zone. Buckets keep the
// order in which their first sample appears, which is chronological for the
// provider feed.
func groupByDay(samples []forecastSample, zone *time.Location) []dayBucket {
	var buckets []dayBucket
	index := make(map[string]int)

	for _, s := range samples {
		date := time.Unix(s.Dt, 0).In(zone).Format(dateLayout)
		i, ok := index[date]
		if !ok {
			i = len(buckets)
			index[date] = i
			buckets = append(buckets, dayBucket{date: date})
		}
		buckets[i].samples = append(buckets[i].samples, s)
	}
	return buckets
}

// upcomingDays drops the bucket for today and keeps at most limit of the rest.
func upcomingDays(buckets []dayBucket, today string, limit int) []dayBucket {
	kept := make([]dayBucket, 0, limit)
	for _, b := range buckets {
		if b.date == today {
			continue
		}
		if len(kept) == limit {
			break
		}
		kept = append(kept, b)
	}
	return kept
}

// dominantCondition returns the most frequent description and the first sample
// that carried it. Ties go to the description seen first.
func dominantCondition(samples []forecastSample) owmCondition {
	counts := make(map[string]int)
	first := make(map[string]owmCondition)
	var order []string

	for _, s := range samples {
		c := s.Weather[0]
		if _, seen := counts[c.Description]; !seen {
			order = append(order, c.Description)
			first[c.Description] = c
		}
		counts[c.Description]++
	}

	best := order[0]
	for _, desc := range order[1:] {
		if counts[desc] > counts[best] {
			best = desc
		}
	}
	return first[best]
}

func aggregateDay(b dayBucket, astro Astro) DailyForecast {
	first := b.samples[0]
	maxTemp, minTemp := first.Main.TempMax, first.Main.TempMin
	maxWind := first.Wind.Speed
	var sumTemp, sumPrecip float64
	var sumHumidity int

	for _, s := range b.samples {
		if s.Main.TempMax > maxTemp {
			maxTemp = s.Main.TempMax
		}
		if s.Main.TempMin < minTemp {
			minTemp = s.Main.TempMin
		}
		if s.Wind.Speed > maxWind {
			maxWind = s.Wind.Speed
		}
		sumTemp += s.Main.Temp
		sumHumidity += s.Main.Humidity
		if s.Rain != nil {
			sumPrecip += s.Rain.ThreeHour
		}
	}

	n := float64(len(b.samples))
	cond := dominantCondition(b.samples)

	return DailyForecast{
		Date:          b.date,
		MaxTempC:      round(maxTemp),
		MinTempC:      round(minTemp),
		AvgTempC:      round(sumTemp / n),
		MaxWindKPH:    kph(maxWind),
		TotalPrecipMM: round(sumPrecip),
		AvgHumidity:   round(float64(sumHumidity) / n),
		Condition: Condition{
			Text: cond.Description,
			Icon: iconURL(cond.Icon),
			Code: cond.ID,
		},
		Astro: astro,
	}
}

func buildForecast(resp forecastResponse, now time.Time) Forecast {
	zone := zoneFor(resp.City.Timezone)
	astro := Astro{
		Sunrise: clock(resp.City.Sunrise, zone),
		Sunset:  clock(resp.City.Sunset, zone),
	}

	today := now.In(zone).Format(dateLayout)
	days := upcomingDays(groupByDay(resp.List, zone), today, maxForecastDays)

	daily := make([]DailyForecast, 0, len(days))
	for _, b := range days {
		daily = append(daily, aggregateDay(b, astro))
	}

	return Forecast{
		Location: Location{
			Name:       resp.City.Name,
			Country:    resp.City.Country,
			Region:     resp.City.Name,
			Lat:        resp.City.Coord.Lat,
			Lon:        resp.City.Coord.Lon,
			TimezoneID: timezoneID(resp.City.Timezone),
			LocalTime:  now.In(zone).Format(time.RFC3339),
		},
		Days: daily,
	}
}

func buildHourly(resp forecastResponse) []HourlySample {
	zone := zoneFor(resp.City.Timezone)
	n := len(resp.List)
	if n > hourlySamples {
		n = hourlySamples
	}

	hourly := make([]HourlySample, 0, n)
	for _, s := range resp.List[:n] {
		cond := s.Weather[0]
		hourly = append(hourly, HourlySample{
			Time:      clock(s.Dt, zone),
			Temp:      round(s.Main.Temp),
			Icon:      ConditionGlyph(cond.ID),
			Condition: cond.Description,
			Humidity:  s.Main.Humidity,
			WindSpeed: kph(s.Wind.Speed),
		})
	}
	return hourly
}
