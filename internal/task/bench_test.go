package task

import "testing"

var benchDoc = []byte(`---
title: Quarterly planning review
status: in-progress
due: 2026-03-15
due_time: "14:30"
priority: high
flagged: true
area: work
project: planning
tags: [review, q1, leadership]
recurrence: FREQ=MONTHLY;INTERVAL=3
estimated_minutes: 90
created: 2026-01-05T09:00:00Z
modified: 2026-02-01T16:45:30.5Z
source: calendar
x-custom: kept verbatim
---
Prepare the slides, collect team OKR status, book the room.
`)

func BenchmarkParse(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := Parse(benchDoc, "fallback"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSerialize(b *testing.B) {
	doc, err := Parse(benchDoc, "fallback")
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Serialize(doc); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRoundTrip(b *testing.B) {
	for i := 0; i < b.N; i++ {
		doc, err := Parse(benchDoc, "fallback")
		if err != nil {
			b.Fatal(err)
		}
		if _, err := Serialize(doc); err != nil {
			b.Fatal(err)
		}
	}
}
