// Package schedule evaluates cron expressions and picks the next scheduled action.
//
// Expressions use the UNIX cron dialect: five fields (minute, hour, day of
// month, month, day of week 0-6) with the usual wildcard, range, step and list
// syntax. Descriptors such as "@daily" and a leading "CRON_TZ=Area/City" are
// accepted as well.
//
//	set := schedule.Set{stop, restart}
//	next, ok := schedule.SelectNext(set, time.Now())
//	if ok {
//		log.Info("next action", "action", next.Entry.Action, "at", next.FireAt)
//	}
package schedule
