package jobs

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

type Postings struct {
	Items []*Posting `json:"items"`
}

func (p *Postings) Len() int {
	return len(p.Items)
}

func (p *Postings) FindByKey(key string) *Posting {
	for _, posting := range p.Items {
		if posting.Key() == key {
			return posting
		}
	}
	return nil
}

// Merge adds postings whose keys are not present yet and returns how many were added.
// Later versions of a known key replace the stored one.
func (p *Postings) Merge(items []*Posting) int {
	index := make(map[string]int, len(p.Items))
	for i, posting := range p.Items {
		index[posting.Key()] = i
	}

	added := 0
	for _, posting := range items {
		if posting == nil {
			continue
		}
		if i, ok := index[posting.Key()]; ok {
			p.Items[i] = posting
			continue
		}
		index[posting.Key()] = len(p.Items)
		p.Items = append(p.Items, posting)
		added++
	}
	return added
}

// Exclude removes postings whose named field equals one of targets and returns
// the keys of the removed postings. Order is preserved.
func (p *Postings) Exclude(field string, targets []string) []string {
	if len(targets) == 0 {
		return nil
	}
	set := make(map[string]bool, len(targets))
	for _, t := range targets {
		set[t] = true
	}

	var excluded []string
	kept := p.Items[:0]
	for _, posting := range p.Items {
		if set[posting.GetStringField(field)] {
			excluded = append(excluded, posting.Key())
			continue
		}
		kept = append(kept, posting)
	}
	p.Items = kept
	return excluded
}

// Keep retains only postings for which keep returns true and returns the dropped keys.
func (p *Postings) Keep(keep func(*Posting) bool) []string {
	var dropped []string
	kept := p.Items[:0]
	for _, posting := range p.Items {
		if keep(posting) {
			kept = append(kept, posting)
			continue
		}
		dropped = append(dropped, posting.Key())
	}
	p.Items = kept
	return dropped
}

func (p *Postings) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "postings_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// ReportByCompany groups a short description of each posting by company.
func (p *Postings) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, posting := range p.Items {
		report[posting.Company] = append(report[posting.Company], map[string]string{
			"title":    posting.Title,
			"key":      posting.Key(),
			"url":      posting.URL,
			"location": posting.Location,
			"salary":   posting.Salary.String(),
			"remote":   fmt.Sprintf("%t", posting.Remote),
		})
	}
	return report
}

// Companies returns the distinct company names, sorted.
func (p *Postings) Companies() []string {
	seen := make(map[string]bool)
	for _, posting := range p.Items {
		seen[posting.Company] = true
	}
	return sortedKeys(seen)
}

// SortByPosted orders postings newest first.
func (p *Postings) SortByPosted() {
	sort.SliceStable(p.Items, func(i, j int) bool {
		return p.Items[i].PostedAt.After(p.Items[j].PostedAt)
	})
}
