package mysql

// -----------------------------------------------------------------------------
// PACKAGES
// -----------------------------------------------------------------------------

const packageColumns = `id, title, description, features, price, is_active, created_at, updated_at`

const insertPackageSQL = `
INSERT INTO packages
  (title, description, features, price, is_active, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?)
`

const updatePackageSQL = `
UPDATE packages
SET title = ?, description = ?, features = ?, price = ?, updated_at = ?
WHERE id = ?
`

const deactivatePackageSQL = `UPDATE packages SET is_active = 0, updated_at = ? WHERE id = ?`

const getPackageSQL = `SELECT ` + packageColumns + ` FROM packages WHERE id = ?`

const listActivePackagesSQL = `SELECT ` + packageColumns + ` FROM packages WHERE is_active = 1 ORDER BY id`

// -----------------------------------------------------------------------------
// BOOKINGS
// -----------------------------------------------------------------------------

const bookingColumns = `
  id, booking_ref, package_id, room_number, customer_name, customer_email,
  customer_phone, check_in_date, check_out_date, total_price, status, admin_notes,
  created_at, updated_at`

// Serialises writers per room: a second booking for the same room waits here until
// the first transaction commits, then sees its row in the overlap check.
const lockRoomSQL = `SELECT number FROM rooms WHERE number = ? FOR UPDATE`

// Half-open overlap: existing.check_in < new.check_out AND new.check_in < existing.check_out.
const overlapSQL = `
SELECT EXISTS (
  SELECT 1 FROM bookings
  WHERE room_number = ?
    AND status IN ('pending', 'confirmed')
    AND check_in_date < ?
    AND ? < check_out_date
    AND id <> ?
)
`

const bookedRoomsSQL = `
SELECT DISTINCT room_number FROM bookings
WHERE status IN ('pending', 'confirmed')
  AND check_in_date < ?
  AND ? < check_out_date
ORDER BY room_number
`

const insertBookingSQL = `
INSERT INTO bookings
  (booking_ref, package_id, room_number, customer_name, customer_email, customer_phone,
   check_in_date, check_out_date, total_price, status, admin_notes, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const getBookingByIDSQL = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`

const getBookingByRefSQL = `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_ref = ?`

// Conditional on the status the caller read.
const updateBookingSQL = `
UPDATE bookings
SET status = ?, admin_notes = ?, updated_at = ?
WHERE id = ? AND status = ?
`

const deleteBookingSQL = `DELETE FROM bookings WHERE id = ?`

const listBookingsSQL = `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at DESC, id DESC`

const listPackageBookingsSQL = `
SELECT ` + bookingColumns + ` FROM bookings
WHERE package_id = ?
  AND status IN ('pending', 'confirmed')
  AND check_out_date > ?
ORDER BY check_in_date ASC, room_number ASC
`

const listBlockingBetweenSQL = `
SELECT ` + bookingColumns + ` FROM bookings
WHERE status IN ('pending', 'confirmed')
  AND check_in_date >= ?
  AND check_in_date < ?
ORDER BY id
`

// -----------------------------------------------------------------------------
// ADMINS
// -----------------------------------------------------------------------------

const adminColumns = `id, email, password_hash, name, role, is_active, created_at, updated_at`

const insertAdminSQL = `
INSERT INTO admins
  (email, password_hash, name, role, is_active, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?)
`

const getAdminSQL = `SELECT ` + adminColumns + ` FROM admins WHERE id = ?`

const getActiveAdminByEmailSQL = `SELECT ` + adminColumns + ` FROM admins WHERE email = ? AND is_active = 1`

const listActiveAdminsSQL = `SELECT ` + adminColumns + ` FROM admins WHERE is_active = 1 ORDER BY id`

// Optimistic: only applies if (email, role, is_active) still match what was read.
const updateAdminSQL = `
UPDATE admins
SET email = ?, name = ?, role = ?, is_active = ?, updated_at = ?
WHERE id = ? AND email = ? AND role = ? AND is_active = ?
`

const countActiveSuperAdminsSQL = `SELECT COUNT(*) FROM admins WHERE is_active = 1 AND role = 'super_admin'`

// Locks every active super_admin row so demotions serialise on the quorum.
const lockActiveSuperAdminsSQL = `SELECT id FROM admins WHERE is_active = 1 AND role = 'super_admin' ORDER BY id FOR UPDATE`

// -----------------------------------------------------------------------------
// NOTIFICATIONS
// -----------------------------------------------------------------------------

const notificationColumns = `id, type, title, message, booking_ref, is_read, priority, dedupe_key, created_at, read_at`

const insertNotificationSQL = `
INSERT INTO notifications
  (type, title, message, booking_ref, is_read, priority, dedupe_key, created_at)
VALUES
  (?, ?, ?, ?, 0, ?, ?, ?)
`

const getNotificationSQL = `SELECT ` + notificationColumns + ` FROM notifications WHERE id = ?`

const getNotificationByDedupeSQL = `SELECT ` + notificationColumns + ` FROM notifications WHERE dedupe_key = ?`

const listNotificationsSQL = `SELECT ` + notificationColumns + ` FROM notifications ORDER BY created_at DESC, id DESC LIMIT ?`

const listUnreadNotificationsSQL = `SELECT ` + notificationColumns + ` FROM notifications WHERE is_read = 0 ORDER BY created_at DESC, id DESC LIMIT ?`

// Idempotent: already-read rows keep their read_at.
const markNotificationReadSQL = `UPDATE notifications SET is_read = 1, read_at = ? WHERE id = ? AND is_read = 0`

const markAllNotificationsReadSQL = `UPDATE notifications SET is_read = 1, read_at = ? WHERE is_read = 0`

const countUnreadNotificationsSQL = `SELECT COUNT(*) FROM notifications WHERE is_read = 0`

const deleteNotificationSQL = `DELETE FROM notifications WHERE id = ?`

const deleteNotificationsBeforeSQL = `DELETE FROM notifications WHERE created_at < ?`

const deleteReadNotificationsBeforeSQL = `DELETE FROM notifications WHERE created_at < ? AND is_read = 1`

// -----------------------------------------------------------------------------
// OUTBOX
// -----------------------------------------------------------------------------

const insertIntentSQL = `
INSERT INTO outbox
  (id, type, title, message, booking_ref, priority, attempts, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, 0, ?)
`

const pendingIntentsSQL = `
SELECT id, type, title, message, booking_ref, priority, attempts, last_error, created_at
FROM outbox
WHERE dispatched_at IS NULL AND failed_at IS NULL
ORDER BY created_at, id
LIMIT ?
`

const markIntentDispatchedSQL = `UPDATE outbox SET dispatched_at = ? WHERE id = ?`

const purgeSettledIntentsSQL = `
DELETE FROM outbox
WHERE (dispatched_at IS NOT NULL AND dispatched_at < ?)
   OR (failed_at IS NOT NULL AND failed_at < ?)
`

const markIntentFailedSQL = `
UPDATE outbox
SET attempts = attempts + 1, last_error = ?, failed_at = ?
WHERE id = ?
`
