package engine

// Annotation attachment is the landing point for asynchronous enrichment
// work (AI insights, security scans, cost estimates). Completions arrive in
// any order, possibly after the session closed, possibly more than once for
// the same payload; all of that is tolerated without error.

// AttachInsight appends an insight to the record identified by key. The
// append is idempotent on (Provider, ID): redelivery of the same insight is
// a no-op. Returns false — never an error — when the key is unknown or the
// session has closed; a stale completion is simply discarded.
func (s *Session) AttachInsight(key RequestKey, insight Insight) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	rec := s.lookupLocked(key)
	if rec == nil {
		if s.logger != nil {
			s.logger.Debug("ignoring insight for unknown record", "key", key.String(), "provider", insight.Provider)
		}
		return false
	}

	for _, existing := range rec.Insights {
		if existing.Provider == insight.Provider && existing.ID == insight.ID {
			return true
		}
	}
	rec.Insights = append(rec.Insights, insight)
	return true
}

// AttachSecurityFinding appends a security finding to the record identified
// by key, with the same idempotency and tolerance rules as AttachInsight.
func (s *Session) AttachSecurityFinding(key RequestKey, finding SecurityFinding) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	rec := s.lookupLocked(key)
	if rec == nil {
		if s.logger != nil {
			s.logger.Debug("ignoring finding for unknown record", "key", key.String(), "provider", finding.Provider)
		}
		return false
	}

	for _, existing := range rec.SecurityFindings {
		if existing.Provider == finding.Provider && existing.ID == finding.ID {
			return true
		}
	}
	rec.SecurityFindings = append(rec.SecurityFindings, finding)
	return true
}
