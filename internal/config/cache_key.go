package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentLoginKey returns the cache key holding the JTI of a student's active login.
func (r *CacheKeyStruct) StudentLoginKey(studentID int64) string {
	return fmt.Sprintf("student:%d:login", studentID)
}

// DrivePaperKey returns the cache key for a drive's student-facing question paper.
func (r *CacheKeyStruct) DrivePaperKey(driveID int64) string {
	return fmt.Sprintf("drive:%d:paper", driveID)
}

// DriveMonitorChannel returns the Redis PubSub channel name for a drive monitor.
func (r *CacheKeyStruct) DriveMonitorChannel(driveID int64) string {
	return fmt.Sprintf("drive:%d:monitor", driveID)
}

var CacheKey = NewCacheKeyStruct()
