package mysql

const createTokensSQL = `
CREATE TABLE IF NOT EXISTS client_tokens (
  profile    VARCHAR(64)  NOT NULL,
  name       VARCHAR(32)  NOT NULL,
  value      TEXT         NOT NULL,
  updated_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
  PRIMARY KEY (profile, name)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
`

const upsertTokenSQL = `
INSERT INTO client_tokens (profile, name, value)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE
  value      = VALUES(value),
  updated_at = CURRENT_TIMESTAMP
`

const getTokenSQL = `SELECT value FROM client_tokens WHERE profile = ? AND name = ?`

const deleteTokenSQL = `DELETE FROM client_tokens WHERE profile = ? AND name = ?`
