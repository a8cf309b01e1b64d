package sqlinline

const QUpsertGoogleUser = `--sql 8d23f691-69fa-4ca6-a904-2c8178dbf7f7
insert into users (id, google_sub, email, name, avatar_url, created_at, updated_at)
values (gen_random_uuid(), $1::text, $2::text, $3::text, $4::text, now(), now())
on conflict (google_sub) do update set
    email = excluded.email,
    name = excluded.name,
    avatar_url = excluded.avatar_url,
    updated_at = now()
returning id::text, google_sub, email, name, avatar_url, created_at, updated_at;
`

const QSelectUserByID = `--sql fdad0353-4893-4275-bc56-e39d856357a2
select id::text, google_sub, email, name, avatar_url, created_at, updated_at
from users
where id = $1::uuid
limit 1;
`
