package sqlinline

const QInsertGeneration = `--sql fb6fe7ed-5f3e-41ad-9b4f-9ef8e7986230
insert into generations (id, user_id, provider, status, input_image_url, prompt, style_id, created_at, updated_at)
values ($1::text, $2::text, $3::text, 'processing', nullif($4::text, ''), $5::text, $6::text, now(), now())
returning created_at, updated_at;
`

// QCompleteGeneration and QFailGeneration only match rows still in
// processing; zero affected rows means the job was already terminal.
const QCompleteGeneration = `--sql 16781d61-990c-4cd3-89e9-915e24c3ff51
update generations
set status = 'completed',
    output_image_url = $2::text,
    error = null,
    updated_at = now()
where id = $1::text
  and status = 'processing';
`

const QFailGeneration = `--sql 761092f6-d4dd-4a27-a46b-c1deb20a59d7
update generations
set status = 'failed',
    error = $2::text,
    output_image_url = null,
    updated_at = now()
where id = $1::text
  and status = 'processing';
`

const QSelectGeneration = `--sql bddd087e-03a7-4e92-af09-3c8b3f1782e1
select id, user_id, provider, status,
       coalesce(input_image_url, ''), prompt, style_id,
       coalesce(output_image_url, ''), coalesce(error, ''),
       created_at, updated_at
from generations
where id = $1::text
limit 1;
`

const QListGenerationsByUser = `--sql e82246f4-3d0c-47d4-ad5a-870427e9fb47
select id, user_id, provider, status,
       coalesce(input_image_url, ''), prompt, style_id,
       coalesce(output_image_url, ''), coalesce(error, ''),
       created_at, updated_at
from generations
where user_id = $1::text
order by created_at desc
limit $2::int
offset $3::int;
`

const QCountGenerationsByUser = `--sql bbbfa689-301b-4b83-a6f2-7e6f8a3f8df0
select count(*)::int
from generations
where user_id = $1::text;
`

const QExpireStaleGenerations = `--sql feb21671-b3c2-46d3-9a65-c0898480e0e0
update generations
set status = 'failed',
    error = $2::text,
    updated_at = now()
where status = 'processing'
  and created_at < $1::timestamptz
returning id, user_id, provider, status,
          coalesce(input_image_url, ''), prompt, style_id,
          coalesce(output_image_url, ''), coalesce(error, ''),
          created_at, updated_at;
`
