package model

import "time"

// ApplicationStatusSubmitted is the status every new application starts in.
const ApplicationStatusSubmitted = "submitted"

// JobFields are the client-supplied fields of a job posting.
type JobFields struct {
	Title                   string
	Company                 string
	Description             string
	ApplicationInstructions string
	Status                  string
}

// Job is a posting owned by an employer.
// EmployerID is set once at creation from the authenticated caller.
type Job struct {
	ID                      int64          `json:"id"`
	Title                   string         `json:"title"`
	Company                 string         `json:"company"`
	Description             string         `json:"description"`
	ApplicationInstructions string         `json:"applicationInstructions"`
	Status                  string         `json:"status"`
	DatePosted              time.Time      `json:"datePosted"`
	EmployerID              int64          `json:"employerId"`
	Applicants              []*Application `json:"applicants"`
}

// Clone returns a copy of the job that shares no mutable state with j.
func (j *Job) Clone() *Job {
	c := *j
	c.Applicants = make([]*Application, len(j.Applicants))
	for i, app := range j.Applicants {
		a := *app
		c.Applicants[i] = &a
	}
	return &c
}

// Application is a student's submission to a job. Append-only.
type Application struct {
	ID             int64     `json:"id"`
	JobID          int64     `json:"jobId"`
	Name           string    `json:"name"`
	ResumeFileName string    `json:"resumeFileName"`
	Status         string    `json:"status"`
	DateApplied    time.Time `json:"dateApplied"`
}

// Applicant is the read-only projection of an application shown to job owners.
type Applicant struct {
	Name           string `json:"name"`
	ResumeFileName string `json:"resumeFileName"`
}
